package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Quantile returns the p-quantile of values by linear interpolation between
// closest ranks, the estimator spreadsheets and dataframe libraries default to.
// NaN is returned for empty input.
func Quantile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Quartiles returns the 25th, 50th and 75th percentiles
func Quartiles(values []float64) (q1, q2, q3 float64) {
	if len(values) == 0 {
		nan := math.NaN()
		return nan, nan, nan
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, 0.25), quantileSorted(sorted, 0.5), quantileSorted(sorted, 0.75)
}

// Round2 rounds to two decimals, passing NaN and infinities through
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return r
}

// Optional converts NaN and infinities to nil so they encode as JSON null
func Optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Rounded is Optional(Round2(v))
func Rounded(v float64) *float64 {
	return Optional(Round2(v))
}
