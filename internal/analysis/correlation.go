package analysis

import (
	"encoding/json"
	"math"
	"sort"

	"dataanalyst/domain/dataset"

	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix is a symmetric Pearson matrix over the numeric columns.
// Undefined coefficients are NaN.
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}

// CorrelationPair is one off-diagonal entry
type CorrelationPair struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Value float64 `json:"value"`
}

// Empty reports whether the matrix has no columns
func (m CorrelationMatrix) Empty() bool {
	return len(m.Columns) == 0
}

// Cells returns the matrix with undefined entries as nil, for JSON encoding
func (m CorrelationMatrix) Cells() [][]*float64 {
	out := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		out[i] = make([]*float64, len(row))
		for j, v := range row {
			out[i][j] = Optional(v)
		}
	}
	return out
}

// MarshalJSON encodes undefined coefficients as null
func (m CorrelationMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{Columns: m.Columns, Values: m.Cells()})
}

// Rounded returns a copy with every coefficient rounded to two decimals
func (m CorrelationMatrix) Rounded() CorrelationMatrix {
	out := CorrelationMatrix{Columns: m.Columns, Values: make([][]float64, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = make([]float64, len(row))
		for j, v := range row {
			out.Values[i][j] = Round2(v)
		}
	}
	return out
}

// Correlate computes the unrounded Pearson matrix of the numeric columns of f
// using pairwise complete observations
func Correlate(f *dataset.Frame) CorrelationMatrix {
	names := f.NumericColumns()
	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		cols[i], _ = f.Column(name)
	}

	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, len(names))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pairwisePearson(cols[i], cols[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			values[i][j], values[j][i] = r, r
		}
	}
	return CorrelationMatrix{Columns: names, Values: values}
}

// CalculateCorrelationMatrix is Correlate rounded to two decimals
func CalculateCorrelationMatrix(f *dataset.Frame) CorrelationMatrix {
	return Correlate(f).Rounded()
}

func pairwisePearson(a, b *dataset.Column) float64 {
	x := make([]float64, 0, a.Len())
	y := make([]float64, 0, a.Len())
	for i := range a.Values {
		if a.Values[i].Missing || b.Values[i].Missing {
			continue
		}
		x = append(x, a.Values[i].Num)
		y = append(y, b.Values[i].Num)
	}
	if len(x) < 2 || constant(x) || constant(y) {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

// Pairs returns the upper-triangle entries in column order, skipping undefined ones
func (m CorrelationMatrix) Pairs() []CorrelationPair {
	var pairs []CorrelationPair
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if math.IsNaN(m.Values[i][j]) {
				continue
			}
			pairs = append(pairs, CorrelationPair{A: m.Columns[i], B: m.Columns[j], Value: m.Values[i][j]})
		}
	}
	return pairs
}

// TopCorrelations returns up to n pairs ordered by absolute coefficient
func TopCorrelations(m CorrelationMatrix, n int) []CorrelationPair {
	pairs := m.Pairs()
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Value) > math.Abs(pairs[b].Value)
	})
	if n >= 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// InterpretCorrelation describes the strength of a coefficient
func InterpretCorrelation(r float64) string {
	switch abs := math.Abs(r); {
	case abs < 0.3:
		return "weak correlation"
	case abs < 0.7:
		return "moderate correlation"
	default:
		return "strong correlation"
	}
}
