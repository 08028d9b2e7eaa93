package visualization

import (
	"fmt"
	"math"
	"sort"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"
	"dataanalyst/internal/errors"

	"github.com/montanaflynn/stats"
)

// Plot templates understood by the dashboard script
const (
	TemplateDark  = "plotly_dark"
	TemplateLight = "plotly_white"
)

const (
	barLimit     = 20
	groupedLimit = 15
	histogramBin = 30
)

// Visualizer creates the figures of the visualization tab
type Visualizer struct {
	template string
	palette  Palette
}

// NewVisualizer creates a visualizer drawing with template and palette
func NewVisualizer(template string, palette Palette) *Visualizer {
	if template == "" {
		template = TemplateDark
	}
	return &Visualizer{template: template, palette: palette}
}

func (v *Visualizer) baseLayout(title string) Layout {
	return Layout{
		"title":         title,
		"template":      v.template,
		"paper_bgcolor": "rgba(0,0,0,0)",
		"plot_bgcolor":  "rgba(0,0,0,0)",
	}
}

func numericColumn(f *dataset.Frame, name string) (*dataset.Column, bool) {
	col, ok := f.Column(name)
	if !ok || !col.Kind.IsNumeric() {
		return nil, false
	}
	return col, true
}

// DistributionPlot draws a density histogram with a KDE curve and mean and
// median markers. Unknown or non-numeric columns give an empty figure.
func (v *Visualizer) DistributionPlot(f *dataset.Frame, column string) Figure {
	col, ok := numericColumn(f, column)
	if !ok {
		return EmptyFigure()
	}
	values := col.Floats()

	fig := Figure{Data: []Trace{{
		"type":     "histogram",
		"x":        values,
		"name":     "Histogram",
		"opacity":  0.7,
		"marker":   map[string]interface{}{"color": v.palette.Primary},
		"nbinsx":   histogramBin,
		"histnorm": "probability density",
	}}}

	var shapes, annotations []map[string]interface{}
	if xs, ys, ok := KDE(values, kdePoints); ok {
		fig.Data = append(fig.Data, Trace{
			"type": "scatter",
			"x":    xs,
			"y":    ys,
			"mode": "lines",
			"name": "Density",
			"line": map[string]interface{}{"color": v.palette.Accent, "width": 2},
		})

		mean, _ := stats.Mean(values)
		median, _ := stats.Median(values)
		shapes = []map[string]interface{}{
			verticalLine(mean, "red", "dash"),
			verticalLine(median, "green", "dot"),
		}
		annotations = []map[string]interface{}{
			lineLabel(mean, fmt.Sprintf("Mean: %.2f", mean), "left"),
			lineLabel(median, fmt.Sprintf("Median: %.2f", median), "right"),
		}
	}

	layout := v.baseLayout("")
	layout["title"] = map[string]interface{}{
		"text": fmt.Sprintf("Distribution of %s", column),
		"y":    0.95, "x": 0.5, "xanchor": "center", "yanchor": "top",
	}
	layout["xaxis"] = axisTitle(column)
	layout["yaxis"] = axisTitle("Density")
	layout["legend"] = map[string]interface{}{
		"orientation": "h", "yanchor": "bottom", "y": 1.02, "xanchor": "right", "x": 1,
	}
	layout["margin"] = map[string]interface{}{"l": 40, "r": 40, "t": 60, "b": 40}
	layout["hovermode"] = "closest"
	layout["hoverlabel"] = map[string]interface{}{
		"bgcolor": "white", "font": map[string]interface{}{"size": 12, "family": "Arial"},
	}
	if shapes != nil {
		layout["shapes"] = shapes
		layout["annotations"] = annotations
	}
	fig.Layout = layout
	return fig
}

func verticalLine(x float64, color, dash string) map[string]interface{} {
	return map[string]interface{}{
		"type": "line", "x0": x, "x1": x, "xref": "x",
		"y0": 0, "y1": 1, "yref": "paper",
		"line": map[string]interface{}{"color": color, "dash": dash},
	}
}

// lineLabel anchors text to the top of a vertical marker; side is the
// side of the line the text sits on
func lineLabel(x float64, text, side string) map[string]interface{} {
	return map[string]interface{}{
		"x": x, "xref": "x", "y": 1, "yref": "paper",
		"text": text, "showarrow": false, "xanchor": side, "yanchor": "top",
	}
}

// BoxPlot draws a box with outlier points and the mean
func (v *Visualizer) BoxPlot(f *dataset.Frame, column string) Figure {
	col, ok := numericColumn(f, column)
	if !ok {
		return EmptyFigure()
	}
	layout := v.baseLayout(fmt.Sprintf("Box Plot of %s", column))
	layout["yaxis"] = axisTitle(column)
	return Figure{
		Data: []Trace{{
			"type":      "box",
			"y":         col.Floats(),
			"name":      column,
			"boxpoints": "outliers",
			"jitter":    0.3,
			"pointpos":  -1.8,
			"boxmean":   true,
			"fillcolor": v.palette.Primary,
			"line":      map[string]interface{}{"color": v.palette.PrimaryLine},
			"marker": map[string]interface{}{
				"color": v.palette.AccentFill,
				"line":  map[string]interface{}{"color": v.palette.Accent, "width": 1},
			},
		}},
		Layout: layout,
	}
}

// BarChart draws value counts, limited to the 20 most frequent values
func (v *Visualizer) BarChart(f *dataset.Frame, column string) Figure {
	col, ok := f.Column(column)
	if !ok {
		return EmptyFigure()
	}
	counts := analysis.ValueCounts(col)
	title := fmt.Sprintf("Categories in %s", column)
	if len(counts) > barLimit {
		counts = counts[:barLimit]
		title = fmt.Sprintf("Top %d Categories in %s", barLimit, column)
	}

	xs := make([]string, len(counts))
	ys := make([]int, len(counts))
	for i, c := range counts {
		xs[i], ys[i] = c.Value, c.Count
	}

	layout := v.baseLayout(title)
	layout["xaxis"] = axisTitle(column)
	layout["yaxis"] = axisTitle("Count")
	return Figure{
		Data: []Trace{{
			"type":    "bar",
			"x":       xs,
			"y":       ys,
			"marker":  map[string]interface{}{"color": v.palette.Primary},
			"opacity": 0.9,
		}},
		Layout: layout,
	}
}

// CorrelationHeatmap draws the Pearson matrix of the numeric columns.
// Fewer than two numeric columns give an empty figure.
func (v *Visualizer) CorrelationHeatmap(f *dataset.Frame) Figure {
	m := analysis.Correlate(f)
	if len(m.Columns) < 2 {
		return EmptyFigure()
	}
	return v.heatmap(m, "Correlation Heatmap")
}

// CorrelationFigure draws an already computed matrix
func (v *Visualizer) CorrelationFigure(m analysis.CorrelationMatrix, title string) Figure {
	if m.Empty() {
		return EmptyFigure()
	}
	return v.heatmap(m, title)
}

func (v *Visualizer) heatmap(m analysis.CorrelationMatrix, title string) Figure {
	layout := v.baseLayout(title)
	layout["yaxis"] = map[string]interface{}{"autorange": "reversed"}
	return Figure{
		Data: []Trace{{
			"type":         "heatmap",
			"z":            m.Cells(),
			"x":            m.Columns,
			"y":            m.Columns,
			"colorscale":   "RdBu",
			"reversescale": true,
			"zmin":         -1,
			"zmax":         1,
			"texttemplate": "%{z:.2f}",
			"colorbar":     map[string]interface{}{"title": map[string]interface{}{"text": "Correlation"}},
		}},
		Layout: layout,
	}
}

type groupMean struct {
	key  string
	mean float64
}

// GroupedBarChart draws the mean of numColumn per category of catColumn,
// limited to the 15 highest means
func (v *Visualizer) GroupedBarChart(f *dataset.Frame, catColumn, numColumn string) (Figure, error) {
	cat, ok := f.Column(catColumn)
	if !ok {
		return EmptyFigure(), nil
	}
	num, ok := f.Column(numColumn)
	if !ok {
		return EmptyFigure(), nil
	}
	if !num.Kind.IsNumeric() {
		return EmptyFigure(), errors.TypeError(fmt.Sprintf("cannot average non-numeric column %s", numColumn))
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, val := range cat.Values {
		if val.Missing {
			continue
		}
		key := cat.Key(i)
		if _, ok := counts[key]; !ok {
			counts[key] = 0
		}
		if !num.Values[i].Missing {
			sums[key] += num.Values[i].Num
			counts[key]++
		}
	}

	groups := make([]groupMean, 0, len(counts))
	for _, key := range sortedKeys(cat) {
		mean := math.NaN()
		if counts[key] > 0 {
			mean = sums[key] / float64(counts[key])
		}
		groups = append(groups, groupMean{key: key, mean: mean})
	}

	title := fmt.Sprintf("Average %s by %s", numColumn, catColumn)
	if len(groups) > groupedLimit {
		sort.SliceStable(groups, func(a, b int) bool {
			ma, mb := groups[a].mean, groups[b].mean
			if math.IsNaN(mb) {
				return !math.IsNaN(ma)
			}
			return ma > mb
		})
		groups = groups[:groupedLimit]
		title = fmt.Sprintf("Top %d %s by Average %s", groupedLimit, catColumn, numColumn)
	}

	xs := make([]string, len(groups))
	ys := make([]*float64, len(groups))
	for i, g := range groups {
		xs[i], ys[i] = g.key, analysis.Optional(g.mean)
	}

	layout := v.baseLayout(title)
	layout["xaxis"] = axisTitle(catColumn)
	layout["yaxis"] = axisTitle(fmt.Sprintf("Average %s", numColumn))
	return Figure{
		Data: []Trace{{
			"type":    "bar",
			"x":       xs,
			"y":       ys,
			"marker":  map[string]interface{}{"color": v.palette.Primary},
			"opacity": 0.9,
		}},
		Layout: layout,
	}, nil
}

// ScatterMatrix draws every pairwise scatter of columns with the diagonal hidden
func (v *Visualizer) ScatterMatrix(f *dataset.Frame, columns []string) Figure {
	if len(columns) == 0 {
		return EmptyFigure()
	}
	dims := make([]map[string]interface{}, 0, len(columns))
	for _, name := range columns {
		col, ok := f.Column(name)
		if !ok {
			return EmptyFigure()
		}
		dims = append(dims, map[string]interface{}{"label": name, "values": columnValues(col)})
	}
	return Figure{
		Data: []Trace{{
			"type":       "splom",
			"dimensions": dims,
			"marker":     map[string]interface{}{"color": v.palette.Primary, "opacity": 0.7},
			"diagonal":   map[string]interface{}{"visible": false},
		}},
		Layout: v.baseLayout("Scatter Plot Matrix"),
	}
}
