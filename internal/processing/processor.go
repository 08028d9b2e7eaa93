// Package processing cleans uploaded frames before analysis.
//
// Steps are named nodes with dependencies and run in topological order:
//
//	remove_duplicates -> handle_missing_values -> standardize_formats
package processing

import (
	"fmt"
	"log"
	"sort"
	"time"

	"dataanalyst/adapters/datareadiness/coercer"
	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"

	"github.com/dominikbraun/graph"
	"github.com/montanaflynn/stats"
)

// Step names
const (
	StepRemoveDuplicates    = "remove_duplicates"
	StepHandleMissingValues = "handle_missing_values"
	StepStandardizeFormats  = "standardize_formats"
)

// StepFunc transforms a frame
type StepFunc func(*dataset.Frame) (*dataset.Frame, error)

// Step is one node of the cleaning pipeline
type Step struct {
	Name      string
	DependsOn []string
	Apply     StepFunc
}

// ColumnTypes groups column names by kind
type ColumnTypes struct {
	Numeric     []string `json:"numeric_columns"`
	Categorical []string `json:"categorical_columns"`
	Datetime    []string `json:"datetime_columns"`
}

// DataProcessor removes duplicates, imputes missing values and standardizes formats
type DataProcessor struct {
	coercer *coercer.TypeCoercer
	steps   map[string]Step
}

// NewDataProcessor creates a processor with the default cleaning steps
func NewDataProcessor(cfg coercer.CoercionConfig) *DataProcessor {
	p := &DataProcessor{
		coercer: coercer.NewTypeCoercer(cfg),
		steps:   make(map[string]Step),
	}
	p.steps[StepRemoveDuplicates] = Step{Name: StepRemoveDuplicates, Apply: p.RemoveDuplicates}
	p.steps[StepHandleMissingValues] = Step{
		Name:      StepHandleMissingValues,
		DependsOn: []string{StepRemoveDuplicates},
		Apply:     p.HandleMissingValues,
	}
	p.steps[StepStandardizeFormats] = Step{
		Name:      StepStandardizeFormats,
		DependsOn: []string{StepHandleMissingValues},
		Apply:     p.StandardizeFormats,
	}
	return p
}

// addStep registers an extra step. Its dependencies must already exist.
func (p *DataProcessor) addStep(step Step) error {
	if _, exists := p.steps[step.Name]; exists {
		return errors.InvalidInput(fmt.Sprintf("step %q already registered", step.Name))
	}
	for _, dep := range step.DependsOn {
		if _, ok := p.steps[dep]; !ok {
			return errors.NotFound(fmt.Sprintf("step %q", dep))
		}
	}
	p.steps[step.Name] = step
	return nil
}

// Plan returns the step names in execution order
func (p *DataProcessor) Plan() ([]string, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic())

	names := make([]string, 0, len(p.steps))
	for name := range p.steps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := g.AddVertex(name); err != nil {
			return nil, errors.Wrapf(err, "failed to add step %s", name)
		}
	}
	for _, name := range names {
		for _, dep := range p.steps[name].DependsOn {
			if err := g.AddEdge(dep, name); err != nil {
				return nil, errors.Wrapf(err, "failed to link %s -> %s", dep, name)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, errors.Wrap(err, "failed to order cleaning steps")
	}
	return order, nil
}

// Process runs every step on a copy of f
func (p *DataProcessor) Process(f *dataset.Frame) (*dataset.Frame, error) {
	if err := errors.ValidateFrame(f); err != nil {
		return nil, err
	}
	order, err := p.Plan()
	if err != nil {
		return nil, err
	}

	out := f.Copy()
	for _, name := range order {
		start := time.Now()
		out, err = p.steps[name].Apply(out)
		if err != nil {
			return nil, errors.Wrapf(err, "cleaning step %s failed", name)
		}
		log.Printf("[DataProcessor] %s finished in %.2fms (%d rows, %d columns)",
			name, float64(time.Since(start).Nanoseconds())/1e6, out.Rows(), out.Width())
	}
	return out, nil
}

// RemoveDuplicates drops fully duplicated rows, keeping the first occurrence
func (p *DataProcessor) RemoveDuplicates(f *dataset.Frame) (*dataset.Frame, error) {
	seen := make(map[string]struct{}, f.Rows())
	return f.FilterRows(func(i int) bool {
		key := f.RowKey(i)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	}), nil
}

// HandleMissingValues fills numeric gaps with the column mean and every other
// column with its most frequent value. Non-numeric columns come out as text.
func (p *DataProcessor) HandleMissingValues(f *dataset.Frame) (*dataset.Frame, error) {
	out := f.Copy()
	for _, col := range out.Columns {
		var filled *dataset.Column
		var err error
		if col.Kind.IsNumeric() {
			filled, err = imputeMean(col)
		} else {
			filled = imputeMostFrequent(col)
		}
		if err != nil {
			return nil, err
		}
		if err := out.Replace(filled); err != nil {
			return nil, errors.Wrapf(err, "failed to replace column %s", col.Name)
		}
	}
	return out, nil
}

func imputeMean(col *dataset.Column) (*dataset.Column, error) {
	values := make([]dataset.Value, col.Len())
	copy(values, col.Values)
	filled := dataset.NewColumn(col.Name, dataset.KindFloat, values)

	present := col.Floats()
	if len(present) == 0 {
		return filled, nil
	}
	mean, err := stats.Mean(present)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compute mean of %s", col.Name)
	}
	for i := range filled.Values {
		if filled.Values[i].Missing {
			filled.Values[i] = dataset.Number(mean)
		}
	}
	return filled, nil
}

func imputeMostFrequent(col *dataset.Column) *dataset.Column {
	text := make([]string, col.Len())
	counts := make(map[string]int)
	for i, v := range col.Values {
		if v.Missing {
			continue
		}
		s := col.Format(i)
		if s == "" || s == "nan" {
			continue
		}
		text[i] = s
		counts[s]++
	}

	mode, best := "", 0
	for s, n := range counts {
		if n > best || (n == best && s < mode) {
			mode, best = s, n
		}
	}

	values := make([]dataset.Value, len(text))
	for i, s := range text {
		switch {
		case s != "":
			values[i] = dataset.String(s)
		case best > 0:
			values[i] = dataset.String(mode)
		default:
			values[i] = dataset.Missing()
		}
	}
	return dataset.NewColumn(col.Name, dataset.KindObject, values)
}

// StandardizeFormats turns text columns into datetimes or numbers when enough
// rows parse, and normalizes whatever text remains
func (p *DataProcessor) StandardizeFormats(f *dataset.Frame) (*dataset.Frame, error) {
	out := f.Copy()
	for _, name := range out.CategoricalColumns() {
		col, _ := out.Column(name)
		coerced, analysis := p.coercer.Coerce(col)
		if coerced.Kind != dataset.KindObject {
			log.Printf("[DataProcessor] column %s converted to %s (numeric %.0f%%, datetime %.0f%%)",
				name, coerced.Kind.DType(), analysis.NumericRatio*100, analysis.TimestampRatio*100)
		}
		if err := out.Replace(coerced); err != nil {
			return nil, errors.Wrapf(err, "failed to replace column %s", name)
		}
	}
	return out, nil
}

// GetColumnTypes groups the frame's columns by kind
func (p *DataProcessor) GetColumnTypes(f *dataset.Frame) ColumnTypes {
	return ColumnTypes{
		Numeric:     f.NumericColumns(),
		Categorical: f.CategoricalColumns(),
		Datetime:    f.DatetimeColumns(),
	}
}
