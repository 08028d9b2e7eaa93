package report

import (
	"fmt"
	"strings"
	"time"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// GenerateMarkdown renders the report body as markdown. Charts are left
// out; the preview page shows them as interactive figures.
func GenerateMarkdown(f *dataset.Frame, summary analysis.ReportSummary, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", Title)
	fmt.Fprintf(&b, "Generated on %s\n\n", now.Format("2006-01-02 15:04:05"))

	b.WriteString("## Executive Summary\n\n")
	for _, line := range summaryLines(f, summary) {
		fmt.Fprintf(&b, "%s\n\n", escapeMarkdown(line))
	}

	b.WriteString("## Data Overview\n\n")
	if table, ok := descriptiveStats(f, summary); ok {
		b.WriteString("### Descriptive Statistics\n\n")
		b.WriteString("| |")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, " %s |", escapeCell(col))
		}
		b.WriteString("\n|---|")
		for range table.Columns {
			b.WriteString("---:|")
		}
		b.WriteString("\n")
		for i, stat := range table.Index {
			fmt.Fprintf(&b, "| %s |", stat)
			for j := range table.Columns {
				fmt.Fprintf(&b, " %s |", escapeCell(describeCell(table.Values[i][j])))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("## Insights & Recommendations\n\n")
	if len(summary.Patterns) > 0 {
		b.WriteString("**Identified Patterns:**\n\n")
		for _, p := range summary.Patterns {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(p))
		}
		b.WriteString("\n")
	}
	if len(summary.Recommendations) > 0 {
		b.WriteString("**Recommendations:**\n\n")
		for _, r := range summary.Recommendations {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(r))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHTML converts markdown into an HTML fragment
func RenderHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return string(markdown.ToHTML([]byte(md), p, r))
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

// escapeMarkdown keeps column names and values from being read as markup
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeMarkdown(s), "|", `\|`)
}
