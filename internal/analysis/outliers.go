package analysis

import (
	"math"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"

	"github.com/montanaflynn/stats"
)

// Outlier detection methods
const (
	MethodIQR    = "iqr"
	MethodZScore = "zscore"
)

// IdentifyOutliers flags the rows of column that fall outside 1.5 IQR of the
// quartiles (iqr) or more than three standard deviations from the mean
// (zscore). Unknown or non-numeric columns yield no outliers.
func IdentifyOutliers(f *dataset.Frame, column, method string) ([]bool, error) {
	flags := make([]bool, f.Rows())
	col, ok := f.Column(column)
	if !ok || !col.Kind.IsNumeric() {
		return flags, nil
	}
	if method != MethodIQR && method != MethodZScore {
		return nil, errors.InvalidInput("Method must be 'iqr' or 'zscore'")
	}
	values := col.Floats()
	if len(values) == 0 {
		return flags, nil
	}

	var outside func(float64) bool
	switch method {
	case MethodIQR:
		q1, _, q3 := Quartiles(values)
		iqr := q3 - q1
		lower, upper := q1-1.5*iqr, q3+1.5*iqr
		outside = func(v float64) bool { return v < lower || v > upper }
	case MethodZScore:
		mean, _ := stats.Mean(values)
		std := math.NaN()
		if len(values) > 1 {
			std, _ = stats.StandardDeviationSample(values)
		}
		outside = func(v float64) bool { return math.Abs((v-mean)/std) > 3 }
	}

	for i, v := range col.Values {
		if !v.Missing {
			flags[i] = outside(v.Num)
		}
	}
	return flags, nil
}

// CountOutliers returns the number of IQR outliers in column
func CountOutliers(f *dataset.Frame, column string) int {
	flags, _ := IdentifyOutliers(f, column, MethodIQR)
	n := 0
	for _, flagged := range flags {
		if flagged {
			n++
		}
	}
	return n
}
