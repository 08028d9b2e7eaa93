// Package report renders analysis results as a downloadable PDF and as a
// markdown document for the in-browser preview.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"
	"dataanalyst/internal/errors"
	"dataanalyst/internal/visualization"

	"github.com/go-pdf/fpdf"
	"golang.org/x/sync/errgroup"
)

// Title is the heading of every generated report
const Title = "Data Analysis Report"

// distributionCharts is how many numeric columns get a distribution chart
const distributionCharts = 3

type rgb struct{ r, g, b int }

var (
	darkBlue   = rgb{0, 0, 139}
	grey       = rgb{128, 128, 128}
	whiteSmoke = rgb{245, 245, 245}
	beige      = rgb{245, 245, 220}
	black      = rgb{0, 0, 0}
)

// Generator builds PDF reports
type Generator struct {
	palette visualization.Palette
}

// NewGenerator creates a report generator drawing charts with palette
func NewGenerator(palette visualization.Palette) *Generator {
	return &Generator{palette: palette}
}

// charts holds the PNGs embedded in the report
type charts struct {
	distributions []chartImage
	correlation   []byte
}

type chartImage struct {
	column string
	png    []byte
}

// renderCharts draws every report chart concurrently
func (g *Generator) renderCharts(ctx context.Context, f *dataset.Frame, summary analysis.ReportSummary) (*charts, error) {
	columns := summary.NumericColumns
	if len(columns) > distributionCharts {
		columns = columns[:distributionCharts]
	}
	out := &charts{distributions: make([]chartImage, len(columns))}

	eg, _ := errgroup.WithContext(ctx)
	for i, col := range columns {
		eg.Go(func() error {
			png, err := visualization.RenderDistributionPNG(f, col, g.palette)
			if err != nil {
				return fmt.Errorf("distribution of %s: %w", col, err)
			}
			out.distributions[i] = chartImage{column: col, png: png}
			return nil
		})
	}
	if len(summary.NumericColumns) >= 2 {
		eg.Go(func() error {
			png, err := visualization.RenderCorrelationPNG(analysis.Correlate(f))
			if err != nil {
				return fmt.Errorf("correlation heatmap: %w", err)
			}
			out.correlation = png
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GeneratePDF writes a letter-size report for f to w
func (g *Generator) GeneratePDF(ctx context.Context, w io.Writer, f *dataset.Frame, summary analysis.ReportSummary, now time.Time) error {
	if err := errors.ValidateFrame(f); err != nil {
		return err
	}
	start := time.Now()

	images, err := g.renderCharts(ctx, f, summary)
	if err != nil {
		return errors.Wrap(err, "failed to render report charts")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(Title, true)
	pdf.SetCreationDate(now)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(black.r, black.g, black.b)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	title := func(text string) {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.SetTextColor(darkBlue.r, darkBlue.g, darkBlue.b)
		pdf.CellFormat(0, 10, tr(text), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}
	heading := func(text string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(darkBlue.r, darkBlue.g, darkBlue.b)
		pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	para := func(text string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(black.r, black.g, black.b)
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
		pdf.Ln(1)
	}
	spacer := func() { pdf.Ln(6) }

	title(Title)
	para(fmt.Sprintf("Generated on %s", now.Format("2006-01-02 15:04:05")))
	spacer()

	heading("Executive Summary")
	for _, line := range summaryLines(f, summary) {
		para(line)
	}
	spacer()

	heading("Data Overview")
	if table, ok := descriptiveStats(f, summary); ok {
		heading("Descriptive Statistics")
		describeTable(pdf, tr, table, contentW)
		spacer()
	}

	heading("Data Visualizations")
	for _, img := range images.distributions {
		para(fmt.Sprintf("Distribution of %s", img.column))
		embedPNG(pdf, "dist-"+img.column, img.png, contentW)
		spacer()
	}
	if images.correlation != nil {
		para("Correlation Heatmap")
		embedPNG(pdf, "correlation", images.correlation, contentW)
		spacer()
	}

	heading("Insights & Recommendations")
	if len(summary.Patterns) > 0 {
		para("Identified Patterns:")
		for _, p := range summary.Patterns {
			para("• " + p)
		}
		pdf.Ln(4)
	}
	if len(summary.Recommendations) > 0 {
		para("Recommendations:")
		for _, r := range summary.Recommendations {
			para("• " + r)
		}
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "failed to write pdf")
	}
	log.Printf("[Report] PDF with %d pages generated in %.2fms",
		pdf.PageNo(), float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

// summaryLines returns the executive summary paragraphs
func summaryLines(f *dataset.Frame, summary analysis.ReportSummary) []string {
	lines := []string{
		fmt.Sprintf("The dataset contains %d records with %d variables.", f.Rows(), f.Width()),
		fmt.Sprintf("Missing values: %s%% of the dataset", dataset.FormatFloat(summary.MissingPercentage)),
		fmt.Sprintf("Numeric columns: %d", len(summary.NumericColumns)),
		fmt.Sprintf("Categorical columns: %d", len(summary.CategoricalColumns)),
		fmt.Sprintf("Outliers detected: %d across all numeric variables", summary.OutlierCount),
	}
	if sc := summary.StrongestCorrelation; sc != nil && sc.Pair != "N/A" {
		lines = append(lines, fmt.Sprintf("Strongest correlation: %s (%.2f)", sc.Pair, sc.Value))
	}
	return lines
}

// descriptiveStats returns the describe table of the numeric columns. ok is
// false when there are none, and the section is left out of the report.
func descriptiveStats(f *dataset.Frame, summary analysis.ReportSummary) (analysis.DescribeTable, bool) {
	if len(summary.NumericColumns) == 0 {
		return analysis.DescribeTable{}, false
	}
	table := analysis.Describe(f)
	return table, !table.Empty()
}

// describeCell formats a describe value the way the report table shows it
func describeCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "nan"
	case float64:
		return fmt.Sprintf("%.2f", x)
	case int:
		return fmt.Sprintf("%.2f", float64(x))
	default:
		return fmt.Sprint(x)
	}
}

func describeTable(pdf *fpdf.Fpdf, tr func(string) string, table analysis.DescribeTable, width float64) {
	colW := width / float64(len(table.Columns)+1)
	const rowH = 7

	pdf.SetDrawColor(black.r, black.g, black.b)
	pdf.SetLineWidth(0.3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(grey.r, grey.g, grey.b)
	pdf.SetTextColor(whiteSmoke.r, whiteSmoke.g, whiteSmoke.b)
	pdf.CellFormat(colW, rowH+2, "", "1", 0, "C", true, 0, "")
	for _, name := range table.Columns {
		pdf.CellFormat(colW, rowH+2, tr(fit(pdf, name, colW)), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetFillColor(beige.r, beige.g, beige.b)
	pdf.SetTextColor(black.r, black.g, black.b)
	for i, stat := range table.Index {
		pdf.CellFormat(colW, rowH, stat, "1", 0, "C", true, 0, "")
		for j := range table.Columns {
			pdf.CellFormat(colW, rowH, tr(fit(pdf, describeCell(table.Values[i][j]), colW)), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fit shortens s with an ellipsis until it fits in width
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	limit := width - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// embedPNG places an image scaled to the content width with a 3:2 aspect
func embedPNG(pdf *fpdf.Fpdf, name string, data []byte, width float64) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	w := width * 0.9
	h := w * 2 / 3
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h > pageH-bottom-20 {
		pdf.AddPage()
	}
	x := (width-w)/2 + leftMargin(pdf)
	pdf.ImageOptions(name, x, pdf.GetY(), w, h, true, opts, 0, "")
}

func leftMargin(pdf *fpdf.Fpdf) float64 {
	left, _, _, _ := pdf.GetMargins()
	return left
}
