package visualization

import (
	"bytes"
	"fmt"
	"image/color"
	"log"
	"math"
	"time"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Static chart sizes used in the PDF report
const (
	pngWidth  = 6 * vg.Inch
	pngHeight = 4 * vg.Inch
)

// RenderDistributionPNG draws the density histogram and KDE of a numeric
// column as a PNG. Columns without values render empty axes.
func RenderDistributionPNG(f *dataset.Frame, column string, pal Palette) ([]byte, error) {
	start := time.Now()
	col, ok := numericColumn(f, column)
	if !ok {
		return nil, fmt.Errorf("column %s is not numeric", column)
	}
	values := col.Floats()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Distribution of %s", column)
	p.X.Label.Text = column
	p.Y.Label.Text = "Density"

	// a column with every value missing still gets its (empty) axes
	if len(values) == 0 {
		return encodePNG(p)
	}

	hist, err := plotter.NewHist(plotter.Values(values), histogramBin)
	if err != nil {
		return nil, fmt.Errorf("failed to build histogram: %w", err)
	}
	hist.Normalize(1)
	hist.FillColor = mustRGBA(pal.Primary, color.RGBA{R: 51, G: 112, B: 127, A: 178})
	hist.LineStyle.Color = mustRGBA(pal.PrimaryLine, color.RGBA{R: 73, G: 160, B: 181, A: 255})
	p.Add(hist)

	if xs, ys, ok := KDE(values, kdePoints); ok {
		pts := make(plotter.XYs, len(xs))
		for i := range xs {
			pts[i].X, pts[i].Y = xs[i], ys[i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build density line: %w", err)
		}
		line.Color = mustRGBA(pal.Accent, color.RGBA{R: 231, G: 107, B: 243, A: 255})
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add("Density", line)
	}
	p.Legend.Add("Histogram", hist)
	p.Legend.Top = true

	out, err := encodePNG(p)
	if err != nil {
		return nil, err
	}
	log.Printf("[Render] Distribution of %s rendered in %.2fms", column, float64(time.Since(start).Nanoseconds())/1e6)
	return out, nil
}

// correlationGrid adapts a correlation matrix to plotter.GridXYZ with the
// first column drawn at the top
type correlationGrid struct {
	m analysis.CorrelationMatrix
}

func (g correlationGrid) Dims() (c, r int) { return len(g.m.Columns), len(g.m.Columns) }
func (g correlationGrid) Z(c, r int) float64 {
	return g.m.Values[len(g.m.Columns)-1-r][c]
}
func (g correlationGrid) X(c int) float64 { return float64(c) }
func (g correlationGrid) Y(r int) float64 { return float64(r) }

// RenderCorrelationPNG draws an annotated correlation heatmap as a PNG
func RenderCorrelationPNG(m analysis.CorrelationMatrix) ([]byte, error) {
	n := len(m.Columns)
	if n < 2 {
		return nil, fmt.Errorf("correlation heatmap needs at least two numeric columns")
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	p := plot.New()
	p.Title.Text = "Correlation Heatmap"

	heat := plotter.NewHeatMap(correlationGrid{m: m}, cmap.Palette(255))
	heat.Min, heat.Max = -1, 1
	heat.NaN = color.Gray{Y: 200}
	p.Add(heat)

	var labels plotter.XYLabels
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := m.Values[r][c]
			text := "nan"
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(n - 1 - r)})
			labels.Labels = append(labels.Labels, text)
		}
	}
	annotations, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to build heatmap labels: %w", err)
	}
	for i := range annotations.TextStyle {
		annotations.TextStyle[i].XAlign = draw.XCenter
		annotations.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(annotations)

	xticks := make([]plot.Tick, n)
	yticks := make([]plot.Tick, n)
	for i, name := range m.Columns {
		xticks[i] = plot.Tick{Value: float64(i), Label: name}
		yticks[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)

	return encodePNG(p)
}

func encodePNG(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create png canvas: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
