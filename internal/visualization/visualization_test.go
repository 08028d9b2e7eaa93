package visualization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"testing"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"
	apperrors "dataanalyst/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nums(values ...float64) []dataset.Value {
	out := make([]dataset.Value, len(values))
	for i, v := range values {
		out[i] = dataset.Number(v)
	}
	return out
}

func strs(values ...string) []dataset.Value {
	out := make([]dataset.Value, len(values))
	for i, v := range values {
		out[i] = dataset.String(v)
	}
	return out
}

func salesFrame() *dataset.Frame {
	return dataset.MustFrame(
		dataset.NewColumn("region", dataset.KindObject, strs("north", "south", "north", "east", "south", "north")),
		dataset.NewColumn("units", dataset.KindInt, nums(3, 5, 4, 1, 7, 2)),
		dataset.NewColumn("price", dataset.KindFloat, nums(9.5, 12, 10, 7.25, 14, 8)),
	)
}

func newTestVisualizer() *Visualizer {
	return NewVisualizer("", DefaultPalette())
}

func TestPalette(t *testing.T) {
	pal := DefaultPalette()
	require.NoError(t, pal.Validate())

	c, err := RGBA(pal.PrimaryLine)
	require.NoError(t, err)
	assert.Equal(t, uint8(73), c.R)
	assert.Equal(t, uint8(255), c.A)

	hex, err := Hex(pal.Accent)
	require.NoError(t, err)
	assert.Equal(t, "#e76bf3", hex)

	pal.Accent = "not-a-color"
	assert.Error(t, pal.Validate())
}

func TestKDE(t *testing.T) {
	xs, ys, ok := KDE([]float64{1, 2, 3, 4, 5}, 50)
	require.True(t, ok)
	require.Len(t, xs, 50)
	assert.Equal(t, 1.0, xs[0])
	assert.InDelta(t, 5.0, xs[49], 1e-9)

	// peak near the middle of symmetric data
	peak := 0
	for i := range ys {
		if ys[i] > ys[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 3.0, xs[peak], 0.1)

	_, _, ok = KDE([]float64{2, 2, 2}, 50)
	assert.False(t, ok)
	_, _, ok = KDE([]float64{1}, 50)
	assert.False(t, ok)
}

func TestDistributionPlot(t *testing.T) {
	v := newTestVisualizer()
	fig := v.DistributionPlot(salesFrame(), "price")
	require.Len(t, fig.Data, 2)
	assert.Equal(t, "Histogram", fig.Data[0]["name"])
	assert.Equal(t, "probability density", fig.Data[0]["histnorm"])
	assert.Equal(t, "Density", fig.Data[1]["name"])
	assert.Len(t, fig.Data[1]["x"], kdePoints)
	assert.Equal(t, TemplateDark, fig.Layout["template"])

	annotations := fig.Layout["annotations"].([]map[string]interface{})
	assert.Equal(t, "Mean: 10.12", annotations[0]["text"])
	assert.Equal(t, "Median: 9.75", annotations[1]["text"])

	title := fig.Layout["title"].(map[string]interface{})
	assert.Equal(t, "Distribution of price", title["text"])

	assert.True(t, v.DistributionPlot(salesFrame(), "region").IsEmpty())
	assert.True(t, v.DistributionPlot(salesFrame(), "missing").IsEmpty())
}

func TestDistributionPlotConstantColumn(t *testing.T) {
	f := dataset.MustFrame(dataset.NewColumn("c", dataset.KindFloat, nums(4, 4, 4)))
	fig := newTestVisualizer().DistributionPlot(f, "c")
	require.Len(t, fig.Data, 1)
	assert.NotContains(t, fig.Layout, "shapes")
}

func TestBoxPlot(t *testing.T) {
	fig := newTestVisualizer().BoxPlot(salesFrame(), "units")
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "outliers", fig.Data[0]["boxpoints"])
	assert.Equal(t, true, fig.Data[0]["boxmean"])
	assert.Equal(t, "Box Plot of units", fig.Layout["title"])
}

func TestBarChart(t *testing.T) {
	v := newTestVisualizer()
	fig := v.BarChart(salesFrame(), "region")
	assert.Equal(t, "Categories in region", fig.Layout["title"])
	assert.Equal(t, []string{"north", "south", "east"}, fig.Data[0]["x"])
	assert.Equal(t, []int{3, 2, 1}, fig.Data[0]["y"])

	values := make([]dataset.Value, 30)
	for i := range values {
		values[i] = dataset.String(fmt.Sprintf("c%02d", i))
	}
	wide := dataset.MustFrame(dataset.NewColumn("code", dataset.KindObject, values))
	fig = v.BarChart(wide, "code")
	assert.Equal(t, "Top 20 Categories in code", fig.Layout["title"])
	assert.Len(t, fig.Data[0]["x"], 20)
}

func TestCorrelationHeatmap(t *testing.T) {
	v := newTestVisualizer()
	fig := v.CorrelationHeatmap(salesFrame())
	require.Len(t, fig.Data, 1)
	assert.Equal(t, []string{"units", "price"}, fig.Data[0]["x"])
	assert.Equal(t, "RdBu", fig.Data[0]["colorscale"])
	assert.Equal(t, true, fig.Data[0]["reversescale"])

	single, err := salesFrame().Select("region", "units")
	require.NoError(t, err)
	assert.True(t, v.CorrelationHeatmap(single).IsEmpty())
}

func TestGroupedBarChart(t *testing.T) {
	v := newTestVisualizer()
	fig, err := v.GroupedBarChart(salesFrame(), "region", "units")
	require.NoError(t, err)
	assert.Equal(t, "Average units by region", fig.Layout["title"])
	assert.Equal(t, []string{"east", "north", "south"}, fig.Data[0]["x"])
	means := fig.Data[0]["y"].([]*float64)
	assert.Equal(t, 1.0, *means[0])
	assert.Equal(t, 3.0, *means[1])
	assert.Equal(t, 6.0, *means[2])

	_, err = v.GroupedBarChart(salesFrame(), "units", "region")
	assert.Equal(t, apperrors.CodeTypeError, apperrors.GetCode(err))

	fig, err = v.GroupedBarChart(salesFrame(), "nope", "units")
	require.NoError(t, err)
	assert.True(t, fig.IsEmpty())
}

func TestGroupedBarChartTruncates(t *testing.T) {
	n := 20
	cats := make([]dataset.Value, n)
	vals := make([]dataset.Value, n)
	for i := 0; i < n; i++ {
		cats[i] = dataset.String(fmt.Sprintf("g%02d", i))
		vals[i] = dataset.Number(float64(i))
	}
	f := dataset.MustFrame(
		dataset.NewColumn("group", dataset.KindObject, cats),
		dataset.NewColumn("score", dataset.KindFloat, vals),
	)
	fig, err := newTestVisualizer().GroupedBarChart(f, "group", "score")
	require.NoError(t, err)
	assert.Equal(t, "Top 15 group by Average score", fig.Layout["title"])
	xs := fig.Data[0]["x"].([]string)
	require.Len(t, xs, 15)
	assert.Equal(t, "g19", xs[0])
	assert.Equal(t, "g05", xs[14])
}

func TestScatterMatrix(t *testing.T) {
	v := newTestVisualizer()
	fig := v.ScatterMatrix(salesFrame(), []string{"units", "price"})
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "splom", fig.Data[0]["type"])
	assert.Len(t, fig.Data[0]["dimensions"], 2)
	assert.Equal(t, "Scatter Plot Matrix", fig.Layout["title"])

	assert.True(t, v.ScatterMatrix(salesFrame(), nil).IsEmpty())
	assert.True(t, v.ScatterMatrix(salesFrame(), []string{"units", "nope"}).IsEmpty())
}

func TestBuildChartMessages(t *testing.T) {
	tests := []struct {
		name string
		req  ChartRequest
		want string
	}{
		{"no x", ChartRequest{Type: ChartBar}, MsgSelectX},
		{"scatter without y", ChartRequest{Type: ChartScatter, X: "units"}, MsgScatterNeedsY},
		{"heatmap without y", ChartRequest{Type: ChartHeatmap, X: "units"}, MsgHeatmapNeedsY},
		{"heatmap same column", ChartRequest{Type: ChartHeatmap, X: "region", Y: "region"}, MsgHeatmapFailed},
		{"unknown type", ChartRequest{Type: "pie", X: "units"}, MsgUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildChart(salesFrame(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.UserMessage(err, ""))
		})
	}

	_, err := BuildChart(salesFrame(), ChartRequest{Type: ChartLine, X: "nope"})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}

func TestBuildChart(t *testing.T) {
	f := salesFrame()

	fig, err := BuildChart(f, ChartRequest{Type: ChartBar, X: "region"})
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "north", "south"}, fig.Data[0]["x"])
	assert.Equal(t, []int{1, 3, 2}, fig.Data[0]["y"])
	assert.Equal(t, TemplateLight, fig.Layout["template"])
	assert.Equal(t, 600, fig.Layout["height"])

	fig, err = BuildChart(f, ChartRequest{Type: ChartBar, X: "region", Y: "units"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 9, 12}, fig.Data[0]["y"])

	fig, err = BuildChart(f, ChartRequest{Type: ChartLine, X: "units"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, fig.Data[0]["x"])

	fig, err = BuildChart(f, ChartRequest{Type: ChartHeatmap, X: "region", Y: "units"})
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "north", "south"}, fig.Data[0]["y"])
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "7"}, fig.Data[0]["x"])
	z := fig.Data[0]["z"].([][]int)
	assert.Equal(t, []int{1, 0, 0, 0, 0, 0}, z[0])
	assert.Equal(t, []int{0, 1, 1, 1, 0, 0}, z[1])

	for _, kind := range []string{ChartScatter, ChartHistogram, ChartBox} {
		fig, err = BuildChart(f, ChartRequest{Type: kind, X: "units", Y: "price"})
		require.NoError(t, err, kind)
		_, err = json.Marshal(fig)
		require.NoError(t, err, kind)
	}
}

func TestRenderPNG(t *testing.T) {
	f := salesFrame()

	raw, err := RenderDistributionPNG(f, "price", DefaultPalette())
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	_, err = RenderDistributionPNG(f, "region", DefaultPalette())
	assert.Error(t, err)

	raw, err = RenderCorrelationPNG(analysis.Correlate(f))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	_, err = RenderCorrelationPNG(analysis.CorrelationMatrix{Columns: []string{"a"}})
	assert.Error(t, err)
}

func TestRenderDistributionPNGSparseColumns(t *testing.T) {
	tests := []struct {
		name   string
		values []dataset.Value
	}{
		{"all missing", []dataset.Value{dataset.Missing(), dataset.Missing(), dataset.Missing()}},
		{"single value", []dataset.Value{dataset.Missing(), dataset.Number(4), dataset.Missing()}},
		{"constant", nums(2, 2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := dataset.MustFrame(dataset.NewColumn("notes", dataset.KindFloat, tt.values))

			raw, err := RenderDistributionPNG(f, "notes", DefaultPalette())
			require.NoError(t, err)
			_, err = png.Decode(bytes.NewReader(raw))
			require.NoError(t, err)
		})
	}
}
