package analysis

import (
	"dataanalyst/domain/dataset"
)

// DescribeTable is a statistics-by-column grid. Values[i][j] holds statistic
// Index[i] of column Columns[j] as a float64, int, string or nil.
type DescribeTable struct {
	Index   []string        `json:"index"`
	Columns []string        `json:"columns"`
	Values  [][]interface{} `json:"values"`
}

// Empty reports whether the table has no columns
func (t DescribeTable) Empty() bool {
	return len(t.Columns) == 0
}

var (
	numericDescribeIndex = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	objectDescribeIndex  = []string{"count", "unique", "top", "freq"}
)

// Describe summarizes the numeric columns of f, or every column when none is numeric
func Describe(f *dataset.Frame) DescribeTable {
	if numeric := f.NumericColumns(); len(numeric) > 0 {
		return describeNumeric(f, numeric)
	}
	return describeObjects(f, f.Names())
}

func describeNumeric(f *dataset.Frame, names []string) DescribeTable {
	table := newDescribeTable(numericDescribeIndex, names)
	for j, name := range names {
		col, _ := f.Column(name)
		m := computeMoments(col.Floats())
		for i, v := range []float64{float64(m.count), m.mean, m.std, m.min, m.q25, m.q50, m.q75, m.max} {
			if p := Optional(v); p != nil {
				table.Values[i][j] = *p
			}
		}
	}
	return table
}

func describeObjects(f *dataset.Frame, names []string) DescribeTable {
	table := newDescribeTable(objectDescribeIndex, names)
	for j, name := range names {
		col, _ := f.Column(name)
		counts := ValueCounts(col)
		table.Values[0][j] = col.Len() - col.MissingCount()
		table.Values[1][j] = len(counts)
		if len(counts) > 0 {
			table.Values[2][j] = counts[0].Value
			table.Values[3][j] = counts[0].Count
		}
	}
	return table
}

func newDescribeTable(index, columns []string) DescribeTable {
	values := make([][]interface{}, len(index))
	for i := range values {
		values[i] = make([]interface{}, len(columns))
	}
	return DescribeTable{Index: index, Columns: columns, Values: values}
}

// Round returns a copy with every float rounded to two decimals
func (t DescribeTable) Round() DescribeTable {
	out := newDescribeTable(t.Index, t.Columns)
	for i, row := range t.Values {
		for j, v := range row {
			if fv, ok := v.(float64); ok {
				out.Values[i][j] = Round2(fv)
				continue
			}
			out.Values[i][j] = v
		}
	}
	return out
}
