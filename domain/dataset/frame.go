package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the storage type of a column
type Kind int

const (
	KindObject Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDatetime
)

// DType returns the dtype name shown in the summary tables
func (k Kind) DType() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	case KindDatetime:
		return "datetime64[ns]"
	default:
		return "object"
	}
}

// IsNumeric reports whether statistics treat the kind as a number
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// Value is a single cell. Which field is meaningful depends on the column Kind.
type Value struct {
	Num     float64
	Str     string
	Bool    bool
	Time    time.Time
	Missing bool
}

// Missing returns a missing cell
func Missing() Value { return Value{Missing: true} }

// Number returns a numeric cell
func Number(v float64) Value {
	if math.IsNaN(v) {
		return Missing()
	}
	return Value{Num: v}
}

// String returns an object cell
func String(s string) Value { return Value{Str: s} }

// Bool returns a boolean cell
func Bool(b bool) Value { return Value{Bool: b} }

// Time returns a datetime cell
func Time(t time.Time) Value { return Value{Time: t} }

// Column is a named, typed vector of cells
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// NewColumn creates a column
func NewColumn(name string, kind Kind, values []Value) *Column {
	return &Column{Name: name, Kind: kind, Values: values}
}

// Len returns the number of cells
func (c *Column) Len() int { return len(c.Values) }

// MissingCount returns the number of missing cells
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.Missing {
			n++
		}
	}
	return n
}

// Floats returns the non-missing numeric values in row order
func (c *Column) Floats() []float64 {
	if !c.Kind.IsNumeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !v.Missing {
			out = append(out, v.Num)
		}
	}
	return out
}

// Key returns a comparable representation of cell i, used for grouping,
// value counts and duplicate detection. Missing cells return "".
func (c *Column) Key(i int) string {
	v := c.Values[i]
	if v.Missing {
		return ""
	}
	return c.Format(i)
}

// UniqueCount returns the number of distinct non-missing values
func (c *Column) UniqueCount() int {
	seen := make(map[string]struct{}, len(c.Values))
	for i, v := range c.Values {
		if v.Missing {
			continue
		}
		seen[c.Key(i)] = struct{}{}
	}
	return len(seen)
}

// Format renders cell i the way the preview and the CSV export show it
func (c *Column) Format(i int) string {
	v := c.Values[i]
	if v.Missing {
		return ""
	}
	switch c.Kind {
	case KindInt:
		return strconv.FormatInt(int64(v.Num), 10)
	case KindFloat:
		return FormatFloat(v.Num)
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindDatetime:
		if c.dateOnly() {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return v.Str
	}
}

// dateOnly reports whether every timestamp in the column falls on midnight
func (c *Column) dateOnly() bool {
	for _, v := range c.Values {
		if v.Missing {
			continue
		}
		h, m, s := v.Time.Clock()
		if h != 0 || m != 0 || s != 0 || v.Time.Nanosecond() != 0 {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the column
func (c *Column) Copy() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

// FormatFloat renders floats with the shortest round-trip representation,
// keeping a trailing ".0" for whole numbers and switching to exponent form
// for very large or very small magnitudes.
func FormatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// Frame is an in-memory table of equally long columns
type Frame struct {
	Columns []*Column
	index   map[string]int
}

// NewFrame builds a frame, checking that columns line up and names are unique
func NewFrame(columns ...*Column) (*Frame, error) {
	f := &Frame{Columns: columns, index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if _, dup := f.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		if i > 0 && col.Len() != columns[0].Len() {
			return nil, fmt.Errorf("column %q has %d values, expected %d", col.Name, col.Len(), columns[0].Len())
		}
		f.index[col.Name] = i
	}
	return f, nil
}

// MustFrame is NewFrame for fixtures that are known to be valid
func MustFrame(columns ...*Column) *Frame {
	f, err := NewFrame(columns...)
	if err != nil {
		panic(err)
	}
	return f
}

// Rows returns the number of records
func (f *Frame) Rows() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0].Len()
}

// Width returns the number of columns
func (f *Frame) Width() int { return len(f.Columns) }

// Names returns the column names in order
func (f *Frame) Names() []string {
	names := make([]string, len(f.Columns))
	for i, col := range f.Columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a column by name
func (f *Frame) Column(name string) (*Column, bool) {
	if f.index == nil {
		f.reindex()
	}
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.Columns[i], true
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Columns))
	for i, col := range f.Columns {
		f.index[col.Name] = i
	}
}

// Select returns a frame holding only the named columns, in the given order
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		cols = append(cols, col)
	}
	return NewFrame(cols...)
}

// Slice returns rows [start, end) as a new frame sharing no storage
func (f *Frame) Slice(start, end int) *Frame {
	if start < 0 {
		start = 0
	}
	if end > f.Rows() {
		end = f.Rows()
	}
	if start > end {
		start = end
	}
	cols := make([]*Column, len(f.Columns))
	for i, col := range f.Columns {
		values := make([]Value, end-start)
		copy(values, col.Values[start:end])
		cols[i] = &Column{Name: col.Name, Kind: col.Kind, Values: values}
	}
	return MustFrame(cols...)
}

// Head returns the first n rows
func (f *Frame) Head(n int) *Frame { return f.Slice(0, n) }

// Copy returns a deep copy of the frame
func (f *Frame) Copy() *Frame {
	cols := make([]*Column, len(f.Columns))
	for i, col := range f.Columns {
		cols[i] = col.Copy()
	}
	return MustFrame(cols...)
}

// FilterRows keeps the rows for which keep returns true
func (f *Frame) FilterRows(keep func(row int) bool) *Frame {
	rows := make([]int, 0, f.Rows())
	for i := 0; i < f.Rows(); i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	cols := make([]*Column, len(f.Columns))
	for i, col := range f.Columns {
		values := make([]Value, len(rows))
		for j, r := range rows {
			values[j] = col.Values[r]
		}
		cols[i] = &Column{Name: col.Name, Kind: col.Kind, Values: values}
	}
	return MustFrame(cols...)
}

// Replace swaps the column with the same name for col
func (f *Frame) Replace(col *Column) error {
	existing, ok := f.Column(col.Name)
	if !ok {
		return fmt.Errorf("column %q not found", col.Name)
	}
	if col.Len() != existing.Len() {
		return fmt.Errorf("column %q has %d values, expected %d", col.Name, col.Len(), existing.Len())
	}
	f.Columns[f.index[col.Name]] = col
	return nil
}

// NumericColumns returns the names of int and float columns
func (f *Frame) NumericColumns() []string {
	return f.namesWhere(func(c *Column) bool { return c.Kind.IsNumeric() })
}

// CategoricalColumns returns the names of object columns
func (f *Frame) CategoricalColumns() []string {
	return f.namesWhere(func(c *Column) bool { return c.Kind == KindObject })
}

// NonNumericColumns returns every column that is not numeric
func (f *Frame) NonNumericColumns() []string {
	return f.namesWhere(func(c *Column) bool { return !c.Kind.IsNumeric() })
}

// DatetimeColumns returns the names of datetime columns
func (f *Frame) DatetimeColumns() []string {
	return f.namesWhere(func(c *Column) bool { return c.Kind == KindDatetime })
}

func (f *Frame) namesWhere(pred func(*Column) bool) []string {
	names := make([]string, 0, len(f.Columns))
	for _, col := range f.Columns {
		if pred(col) {
			names = append(names, col.Name)
		}
	}
	return names
}

// MissingCount returns the number of missing cells across the frame
func (f *Frame) MissingCount() int {
	n := 0
	for _, col := range f.Columns {
		n += col.MissingCount()
	}
	return n
}

// MissingRate returns missing cells as a fraction of all cells
func (f *Frame) MissingRate() float64 {
	cells := f.Rows() * f.Width()
	if cells == 0 {
		return 0
	}
	return float64(f.MissingCount()) / float64(cells)
}

// Record returns row i formatted as strings
func (f *Frame) Record(i int) []string {
	out := make([]string, len(f.Columns))
	for j, col := range f.Columns {
		out[j] = col.Format(i)
	}
	return out
}

// RowKey returns a stable key for row i covering every column
func (f *Frame) RowKey(i int) string {
	var b strings.Builder
	for j, col := range f.Columns {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		if col.Values[i].Missing {
			b.WriteString("\x00")
			continue
		}
		b.WriteString(col.Format(i))
	}
	return b.String()
}
