package visualization

import (
	"fmt"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"
)

// Chart types accepted by BuildChart
const (
	ChartBar       = "bar"
	ChartLine      = "line"
	ChartScatter   = "scatter"
	ChartHistogram = "histogram"
	ChartBox       = "box"
	ChartHeatmap   = "heatmap"
)

// Messages shown in place of a chart
const (
	MsgChartPrompt     = "Select chart type and variables, then click 'Generate Chart'."
	MsgSelectX         = "Please select an X-axis variable."
	MsgScatterNeedsY   = "Scatter plots require both X and Y axis variables."
	MsgHeatmapNeedsY   = "Heatmaps require both X and Y axis variables."
	MsgHeatmapFailed   = "Could not create heatmap with selected variables. Try different variables."
	MsgUnsupportedType = "Unsupported chart type."
)

// ChartTypes lists the builder's chart types in menu order
var ChartTypes = []string{ChartBar, ChartLine, ChartScatter, ChartHistogram, ChartBox, ChartHeatmap}

// ChartRequest describes a custom chart. Y is optional for some types.
type ChartRequest struct {
	Type string `json:"chart_type" form:"chart_type"`
	X    string `json:"x_axis" form:"x_axis"`
	Y    string `json:"y_axis" form:"y_axis"`
}

// BuildChart creates the custom chart described by req. Input problems come
// back as validation errors carrying the message to show.
func BuildChart(f *dataset.Frame, req ChartRequest) (Figure, error) {
	if req.X == "" {
		return EmptyFigure(), errors.ValidationError(MsgSelectX)
	}

	var fig Figure
	var err error
	switch req.Type {
	case ChartBar:
		fig, err = barChart(f, req.X, req.Y)
	case ChartLine:
		fig, err = lineChart(f, req.X, req.Y)
	case ChartScatter:
		if req.Y == "" {
			return EmptyFigure(), errors.ValidationError(MsgScatterNeedsY)
		}
		fig, err = scatterChart(f, req.X, req.Y)
	case ChartHistogram:
		fig, err = histogramChart(f, req.X)
	case ChartBox:
		fig, err = boxChart(f, req.X, req.Y)
	case ChartHeatmap:
		if req.Y == "" {
			return EmptyFigure(), errors.ValidationError(MsgHeatmapNeedsY)
		}
		fig, err = countHeatmap(f, req.X, req.Y)
	default:
		return EmptyFigure(), errors.ValidationError(MsgUnsupportedType)
	}
	if err != nil {
		return EmptyFigure(), err
	}

	return fig.Update(Layout{
		"template": TemplateLight,
		"height":   600,
		"margin":   map[string]interface{}{"l": 40, "r": 40, "t": 40, "b": 40},
	}), nil
}

func lookup(f *dataset.Frame, names ...string) ([]*dataset.Column, error) {
	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return nil, errors.NotFound(fmt.Sprintf("column %q", name))
		}
		cols[i] = col
	}
	return cols, nil
}

func axes(x, y string) Layout {
	return Layout{"xaxis": axisTitle(x), "yaxis": axisTitle(y)}
}

// barChart counts x values, or sums y per x value
func barChart(f *dataset.Frame, x, y string) (Figure, error) {
	cols, err := lookup(f, x)
	if err != nil {
		return Figure{}, err
	}
	xc := cols[0]
	keys := sortedKeys(xc)

	if y == "" {
		counts := make(map[string]int)
		for i, v := range xc.Values {
			if !v.Missing {
				counts[xc.Key(i)]++
			}
		}
		ys := make([]int, len(keys))
		for i, k := range keys {
			ys[i] = counts[k]
		}
		return Figure{Data: []Trace{{"type": "bar", "x": keys, "y": ys}}, Layout: axes(x, "count")}, nil
	}

	cols, err = lookup(f, y)
	if err != nil {
		return Figure{}, err
	}
	yc := cols[0]
	if !yc.Kind.IsNumeric() {
		return Figure{}, errors.TypeError(fmt.Sprintf("cannot sum non-numeric column %s", y))
	}
	sums := make(map[string]float64)
	for i, v := range xc.Values {
		if !v.Missing && !yc.Values[i].Missing {
			sums[xc.Key(i)] += yc.Values[i].Num
		}
	}
	ys := make([]float64, len(keys))
	for i, k := range keys {
		ys[i] = sums[k]
	}
	return Figure{Data: []Trace{{"type": "bar", "x": keys, "y": ys}}, Layout: axes(x, y)}, nil
}

// lineChart plots x against the row index, or y against x in row order
func lineChart(f *dataset.Frame, x, y string) (Figure, error) {
	cols, err := lookup(f, x)
	if err != nil {
		return Figure{}, err
	}
	if y == "" {
		index := make([]int, f.Rows())
		for i := range index {
			index[i] = i
		}
		trace := Trace{"type": "scatter", "mode": "lines", "x": index, "y": columnValues(cols[0])}
		return Figure{Data: []Trace{trace}, Layout: axes("index", x)}, nil
	}
	both, err := lookup(f, x, y)
	if err != nil {
		return Figure{}, err
	}
	trace := Trace{"type": "scatter", "mode": "lines", "x": columnValues(both[0]), "y": columnValues(both[1])}
	return Figure{Data: []Trace{trace}, Layout: axes(x, y)}, nil
}

func scatterChart(f *dataset.Frame, x, y string) (Figure, error) {
	cols, err := lookup(f, x, y)
	if err != nil {
		return Figure{}, err
	}
	trace := Trace{"type": "scatter", "mode": "markers", "x": columnValues(cols[0]), "y": columnValues(cols[1])}
	return Figure{Data: []Trace{trace}, Layout: axes(x, y)}, nil
}

func histogramChart(f *dataset.Frame, x string) (Figure, error) {
	cols, err := lookup(f, x)
	if err != nil {
		return Figure{}, err
	}
	trace := Trace{"type": "histogram", "x": columnValues(cols[0])}
	return Figure{Data: []Trace{trace}, Layout: axes(x, "count")}, nil
}

// boxChart draws a horizontal box of x, or boxes of y grouped by x
func boxChart(f *dataset.Frame, x, y string) (Figure, error) {
	cols, err := lookup(f, x)
	if err != nil {
		return Figure{}, err
	}
	if y == "" {
		trace := Trace{"type": "box", "x": columnValues(cols[0]), "orientation": "h", "name": x}
		return Figure{Data: []Trace{trace}, Layout: axes(x, "")}, nil
	}
	both, err := lookup(f, x, y)
	if err != nil {
		return Figure{}, err
	}
	trace := Trace{"type": "box", "x": columnValues(both[0]), "y": columnValues(both[1])}
	return Figure{Data: []Trace{trace}, Layout: axes(x, y)}, nil
}

// countHeatmap pivots row counts with x labels down the rows and y labels
// across the columns, filling absent pairs with 0
func countHeatmap(f *dataset.Frame, x, y string) (Figure, error) {
	cols, err := lookup(f, x, y)
	if err != nil {
		return Figure{}, err
	}
	xc, yc := cols[0], cols[1]
	if x == y {
		return Figure{}, errors.ValidationError(MsgHeatmapFailed)
	}

	counts := make(map[[2]string]int)
	rowSeen := make(map[string]bool)
	colSeen := make(map[string]bool)
	for i := 0; i < f.Rows(); i++ {
		if xc.Values[i].Missing || yc.Values[i].Missing {
			continue
		}
		rk, ck := xc.Key(i), yc.Key(i)
		counts[[2]string{rk, ck}]++
		rowSeen[rk], colSeen[ck] = true, true
	}
	if len(counts) == 0 {
		return Figure{}, errors.ValidationError(MsgHeatmapFailed)
	}

	rows := filterKeys(sortedKeys(xc), rowSeen)
	columns := filterKeys(sortedKeys(yc), colSeen)
	z := make([][]int, len(rows))
	for r, rk := range rows {
		z[r] = make([]int, len(columns))
		for c, ck := range columns {
			z[r][c] = counts[[2]string{rk, ck}]
		}
	}

	layout := axes(y, x)
	layout["yaxis"] = map[string]interface{}{"title": map[string]interface{}{"text": x}, "autorange": "reversed"}
	return Figure{
		Data:   []Trace{{"type": "heatmap", "z": z, "x": columns, "y": rows, "colorscale": "Viridis"}},
		Layout: layout,
	}, nil
}

func filterKeys(keys []string, keep map[string]bool) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if keep[k] {
			out = append(out, k)
		}
	}
	return out
}
