package visualization

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// kdePoints is the number of evaluation points of a density curve
const kdePoints = 1000

// ScottBandwidth returns the Gaussian kernel width n^(-1/5) * sample std.
// ok is false when the data cannot support a density estimate.
func ScottBandwidth(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	std, err := stats.StandardDeviationSample(values)
	if err != nil || std == 0 || math.IsNaN(std) {
		return 0, false
	}
	return std * math.Pow(float64(len(values)), -0.2), true
}

// KDE evaluates a Gaussian kernel density estimate on an even grid spanning
// the data range
func KDE(values []float64, points int) (xs, ys []float64, ok bool) {
	bw, ok := ScottBandwidth(values)
	if !ok {
		return nil, nil, false
	}
	lo, _ := stats.Min(values)
	hi, _ := stats.Max(values)

	kernels := make([]distuv.Normal, len(values))
	for i, v := range values {
		kernels[i] = distuv.Normal{Mu: v, Sigma: bw}
	}

	xs = make([]float64, points)
	ys = make([]float64, points)
	step := (hi - lo) / float64(points-1)
	n := float64(len(values))
	for i := range xs {
		x := lo + step*float64(i)
		var density float64
		for _, k := range kernels {
			density += k.Prob(x)
		}
		xs[i] = x
		ys[i] = density / n
	}
	return xs, ys, true
}
