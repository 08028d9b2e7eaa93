package processing

import (
	"testing"

	"dataanalyst/adapters/datareadiness/coercer"
	"dataanalyst/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessor() *DataProcessor {
	return NewDataProcessor(coercer.DefaultCoercionConfig())
}

func strs(values ...string) []dataset.Value {
	out := make([]dataset.Value, len(values))
	for i, s := range values {
		if s == "" {
			out[i] = dataset.Missing()
			continue
		}
		out[i] = dataset.String(s)
	}
	return out
}

func TestPlanOrder(t *testing.T) {
	p := newProcessor()
	order, err := p.Plan()
	require.NoError(t, err)
	assert.Equal(t, []string{StepRemoveDuplicates, StepHandleMissingValues, StepStandardizeFormats}, order)

	require.NoError(t, p.addStep(Step{
		Name:      "drop_constant",
		DependsOn: []string{StepRemoveDuplicates},
		Apply:     func(f *dataset.Frame) (*dataset.Frame, error) { return f, nil },
	}))
	order, err = p.Plan()
	require.NoError(t, err)
	assert.Equal(t, StepRemoveDuplicates, order[0])
	assert.Len(t, order, 4)

	assert.Error(t, p.addStep(Step{Name: "orphan", DependsOn: []string{"missing"}}))
	assert.Error(t, p.addStep(Step{Name: StepRemoveDuplicates}))
}

func TestRemoveDuplicates(t *testing.T) {
	f := dataset.MustFrame(
		dataset.NewColumn("a", dataset.KindInt, []dataset.Value{dataset.Number(1), dataset.Number(1), dataset.Number(2)}),
		dataset.NewColumn("b", dataset.KindObject, strs("x", "x", "x")),
	)
	out, err := newProcessor().RemoveDuplicates(f)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows())
	assert.Equal(t, 3, f.Rows(), "input is untouched")
}

func TestHandleMissingValues(t *testing.T) {
	f := dataset.MustFrame(
		dataset.NewColumn("n", dataset.KindInt, []dataset.Value{dataset.Number(1), dataset.Missing(), dataset.Number(3)}),
		dataset.NewColumn("c", dataset.KindObject, strs("b", "", "a")),
		dataset.NewColumn("empty", dataset.KindFloat, []dataset.Value{dataset.Missing(), dataset.Missing(), dataset.Missing()}),
		dataset.NewColumn("flag", dataset.KindBool, []dataset.Value{dataset.Bool(true), dataset.Bool(false), dataset.Bool(true)}),
	)

	out, err := newProcessor().HandleMissingValues(f)
	require.NoError(t, err)

	n, _ := out.Column("n")
	assert.Equal(t, dataset.KindFloat, n.Kind)
	assert.Equal(t, 2.0, n.Values[1].Num)

	c, _ := out.Column("c")
	assert.Equal(t, "a", c.Values[1].Str, "ties go to the smallest value")

	empty, _ := out.Column("empty")
	assert.Equal(t, 3, empty.MissingCount())

	flag, _ := out.Column("flag")
	assert.Equal(t, dataset.KindObject, flag.Kind)
	assert.Equal(t, "True", flag.Values[0].Str)
}

func TestStandardizeFormats(t *testing.T) {
	f := dataset.MustFrame(
		dataset.NewColumn("when", dataset.KindObject, strs("2024-01-01", "2024-01-02", "2024-01-03", "soon")),
		dataset.NewColumn("amount", dataset.KindObject, strs("1", "2", "3", "4")),
		dataset.NewColumn("city", dataset.KindObject, strs(" Paris ", "LYON", "Nice", "nice")),
	)

	out, err := newProcessor().StandardizeFormats(f)
	require.NoError(t, err)

	when, _ := out.Column("when")
	assert.Equal(t, dataset.KindDatetime, when.Kind)
	assert.True(t, when.Values[3].Missing)

	amount, _ := out.Column("amount")
	assert.Equal(t, dataset.KindFloat, amount.Kind)

	city, _ := out.Column("city")
	assert.Equal(t, "paris", city.Values[0].Str)
	assert.Equal(t, "lyon", city.Values[1].Str)
}

func TestProcess(t *testing.T) {
	f := dataset.MustFrame(
		dataset.NewColumn("id", dataset.KindInt, []dataset.Value{dataset.Number(1), dataset.Number(1), dataset.Number(2)}),
		dataset.NewColumn("name", dataset.KindObject, strs("Ann", "Ann", "")),
	)

	out, err := newProcessor().Process(f)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows())

	name, _ := out.Column("name")
	assert.Equal(t, []string{"ann", "ann"}, []string{name.Values[0].Str, name.Values[1].Str})

	types := newProcessor().GetColumnTypes(out)
	assert.Equal(t, []string{"id"}, types.Numeric)
	assert.Equal(t, []string{"name"}, types.Categorical)
	assert.Empty(t, types.Datetime)

	_, err = newProcessor().Process(dataset.MustFrame())
	assert.EqualError(t, err, "DataFrame is empty.")
}
