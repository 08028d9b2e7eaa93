package analysis

import (
	"math"
	"sort"

	"dataanalyst/domain/dataset"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// NumericSummary holds descriptive statistics of one numeric column.
// Undefined values (std of a single value, skew of fewer than three) are nil.
type NumericSummary struct {
	Column     string   `json:"column"`
	Count      int      `json:"count"`
	Mean       *float64 `json:"mean"`
	Std        *float64 `json:"std"`
	Min        *float64 `json:"min"`
	Q25        *float64 `json:"25%"`
	Q50        *float64 `json:"50%"`
	Q75        *float64 `json:"75%"`
	Max        *float64 `json:"max"`
	Median     *float64 `json:"median"`
	Skew       *float64 `json:"skew"`
	Kurtosis   *float64 `json:"kurtosis"`
	Missing    int      `json:"missing"`
	MissingPct float64  `json:"missing_pct"`
}

// ValueCount is one entry of a frequency table
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategoricalSummary holds frequency statistics of one non-numeric column
type CategoricalSummary struct {
	Column        string       `json:"column"`
	UniqueValues  int          `json:"unique_values"`
	TopValue      *string      `json:"top_value"`
	TopCount      *int         `json:"top_count"`
	TopPercentage *float64     `json:"top_percentage"`
	Missing       int          `json:"missing"`
	MissingPct    float64      `json:"missing_pct"`
	ValueCounts   []ValueCount `json:"value_counts"`
}

// moments are the unrounded statistics shared by the summaries and describe
type moments struct {
	count               int
	mean, std, min, max float64
	q25, q50, q75       float64
	skew, kurtosis      float64
}

func computeMoments(values []float64) moments {
	nan := math.NaN()
	m := moments{count: len(values), mean: nan, std: nan, min: nan, max: nan,
		q25: nan, q50: nan, q75: nan, skew: nan, kurtosis: nan}
	if len(values) == 0 {
		return m
	}

	m.mean, _ = stats.Mean(values)
	m.min, _ = stats.Min(values)
	m.max, _ = stats.Max(values)
	m.q25, m.q50, m.q75 = Quartiles(values)

	if len(values) > 1 {
		m.std, _ = stats.StandardDeviationSample(values)
	}

	n := len(values)
	constant := m.min == m.max
	if n >= 3 {
		if constant {
			m.skew = 0
		} else {
			m.skew = stat.Skew(values, nil)
		}
	}
	if n >= 4 {
		if constant {
			m.kurtosis = 0
		} else {
			m.kurtosis = stat.ExKurtosis(values, nil)
		}
	}
	return m
}

func percentOf(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return Round2(float64(part) / float64(whole) * 100)
}

// NumericalStatistics summarizes every numeric column, values rounded to two decimals
func NumericalStatistics(f *dataset.Frame) []NumericSummary {
	names := f.NumericColumns()
	out := make([]NumericSummary, 0, len(names))
	for _, name := range names {
		col, _ := f.Column(name)
		m := computeMoments(col.Floats())
		missing := col.MissingCount()
		out = append(out, NumericSummary{
			Column:     name,
			Count:      m.count,
			Mean:       Rounded(m.mean),
			Std:        Rounded(m.std),
			Min:        Rounded(m.min),
			Q25:        Rounded(m.q25),
			Q50:        Rounded(m.q50),
			Q75:        Rounded(m.q75),
			Max:        Rounded(m.max),
			Median:     Rounded(m.q50),
			Skew:       Rounded(m.skew),
			Kurtosis:   Rounded(m.kurtosis),
			Missing:    missing,
			MissingPct: percentOf(missing, f.Rows()),
		})
	}
	return out
}

// ValueCounts returns the frequency table of non-missing values, most frequent
// first. Ties keep the order in which values first appear.
func ValueCounts(col *dataset.Column) []ValueCount {
	index := make(map[string]int)
	var counts []ValueCount
	for i, v := range col.Values {
		if v.Missing {
			continue
		}
		key := col.Key(i)
		if j, ok := index[key]; ok {
			counts[j].Count++
			continue
		}
		index[key] = len(counts)
		counts = append(counts, ValueCount{Value: key, Count: 1})
	}
	sort.SliceStable(counts, func(a, b int) bool { return counts[a].Count > counts[b].Count })
	return counts
}

// CategoricalStatistics summarizes every non-numeric column
func CategoricalStatistics(f *dataset.Frame) []CategoricalSummary {
	names := f.NonNumericColumns()
	out := make([]CategoricalSummary, 0, len(names))
	for _, name := range names {
		col, _ := f.Column(name)
		counts := ValueCounts(col)
		missing := col.MissingCount()

		summary := CategoricalSummary{
			Column:       name,
			UniqueValues: len(counts),
			Missing:      missing,
			MissingPct:   percentOf(missing, f.Rows()),
		}
		if len(counts) > 0 {
			top := counts[0]
			pct := percentOf(top.Count, f.Rows())
			summary.TopValue = &top.Value
			summary.TopCount = &top.Count
			summary.TopPercentage = &pct
		}
		if len(counts) > 10 {
			counts = counts[:10]
		}
		summary.ValueCounts = counts
		out = append(out, summary)
	}
	return out
}
