package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"
	"dataanalyst/internal/visualization"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportFrame() *dataset.Frame {
	num := func(vs ...float64) []dataset.Value {
		out := make([]dataset.Value, len(vs))
		for i, v := range vs {
			out[i] = dataset.Number(v)
		}
		return out
	}
	return dataset.MustFrame(
		dataset.NewColumn("x", dataset.KindInt, num(1, 2, 3, 4, 100)),
		dataset.NewColumn("y", dataset.KindFloat, num(2, 4, 6, 8, 10)),
		dataset.NewColumn("cat", dataset.KindObject, []dataset.Value{
			dataset.String("a"), dataset.String("b"), dataset.String("a"), dataset.String("c"), dataset.Missing(),
		}),
	)
}

var reportTime = time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

func TestSummaryLines(t *testing.T) {
	f := reportFrame()
	summary := analysis.NewStatisticalAnalyzer().Summarize(f)

	assert.Equal(t, []string{
		"The dataset contains 5 records with 3 variables.",
		"Missing values: 6.67% of the dataset",
		"Numeric columns: 2",
		"Categorical columns: 1",
		"Outliers detected: 1 across all numeric variables",
		"Strongest correlation: x and y (0.72)",
	}, summaryLines(f, summary))

	summary.StrongestCorrelation = &analysis.StrongestCorrelation{Pair: "N/A"}
	assert.Len(t, summaryLines(f, summary), 5)
}

func TestDescribeCell(t *testing.T) {
	assert.Equal(t, "3.16", describeCell(3.16227))
	assert.Equal(t, "4.00", describeCell(4))
	assert.Equal(t, "a", describeCell("a"))
	assert.Equal(t, "nan", describeCell(nil))
}

func TestGeneratePDF(t *testing.T) {
	f := reportFrame()
	summary := analysis.NewStatisticalAnalyzer().Summarize(f)

	var buf bytes.Buffer
	g := NewGenerator(visualization.DefaultPalette())
	require.NoError(t, g.GeneratePDF(context.Background(), &buf, f, summary, reportTime))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)

	err := g.GeneratePDF(context.Background(), &buf, dataset.MustFrame(), summary, reportTime)
	assert.EqualError(t, err, "DataFrame is empty.")
}

func TestGeneratePDFSparseColumns(t *testing.T) {
	missing := func(n int) []dataset.Value {
		out := make([]dataset.Value, n)
		for i := range out {
			out[i] = dataset.Missing()
		}
		return out
	}

	tests := []struct {
		name  string
		frame *dataset.Frame
	}{
		{"blank column", dataset.MustFrame(
			dataset.NewColumn("a", dataset.KindInt, []dataset.Value{dataset.Number(1), dataset.Number(3), dataset.Number(4)}),
			dataset.NewColumn("b", dataset.KindInt, []dataset.Value{dataset.Number(2), dataset.Number(5), dataset.Number(4)}),
			dataset.NewColumn("notes", dataset.KindFloat, missing(3)),
		)},
		{"only blank column", dataset.MustFrame(
			dataset.NewColumn("notes", dataset.KindFloat, missing(2)),
		)},
		{"single value", dataset.MustFrame(
			dataset.NewColumn("a", dataset.KindFloat, []dataset.Value{dataset.Number(7), dataset.Missing()}),
			dataset.NewColumn("b", dataset.KindInt, []dataset.Value{dataset.Number(1), dataset.Number(2)}),
		)},
		{"no numeric columns", dataset.MustFrame(
			dataset.NewColumn("cat", dataset.KindObject, []dataset.Value{dataset.String("a"), dataset.String("b")}),
		)},
	}
	g := NewGenerator(visualization.DefaultPalette())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := analysis.NewStatisticalAnalyzer().Summarize(tt.frame)

			var buf bytes.Buffer
			require.NoError(t, g.GeneratePDF(context.Background(), &buf, tt.frame, summary, reportTime))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		})
	}
}

func TestDescriptiveStatsNeedsNumericColumns(t *testing.T) {
	f := dataset.MustFrame(
		dataset.NewColumn("cat", dataset.KindObject, []dataset.Value{dataset.String("a"), dataset.String("b")}),
	)
	summary := analysis.NewStatisticalAnalyzer().Summarize(f)

	_, ok := descriptiveStats(f, summary)
	assert.False(t, ok)
	md := GenerateMarkdown(f, summary, reportTime)
	assert.Contains(t, md, "## Data Overview")
	assert.NotContains(t, md, "Descriptive Statistics")

	table, ok := descriptiveStats(reportFrame(), analysis.NewStatisticalAnalyzer().Summarize(reportFrame()))
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, table.Columns)
}

func TestGenerateMarkdown(t *testing.T) {
	f := reportFrame()
	summary := analysis.NewStatisticalAnalyzer().Summarize(f)

	md := GenerateMarkdown(f, summary, reportTime)
	assert.Contains(t, md, "# Data Analysis Report\n")
	assert.Contains(t, md, "Generated on 2024-03-09 14:05:06")
	assert.Contains(t, md, "| | x | y |")
	assert.Contains(t, md, "| std | 43.62 | 3.16 |")
	assert.Contains(t, md, "- Strong correlation between x and y (0.72)")

	html := RenderHTML(md)
	assert.Contains(t, html, "Data Analysis Report</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<li>Strong correlation between x and y (0.72)</li>")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b \*c\*`, escapeMarkdown("a_b *c*"))
	assert.Equal(t, `x\|y`, escapeCell("x|y"))
	assert.Equal(t, "&lt;script&gt;", escapeMarkdown("<script>"))
}
