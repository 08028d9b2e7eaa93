package ui

import (
	"bytes"
	"fmt"
	"log"
	"net/http"

	"dataanalyst/adapters/excel"
	"dataanalyst/internal/analysis"
	"dataanalyst/internal/report"

	"github.com/gin-gonic/gin"
	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// download archives the export and sends it as an attachment. A failed
// archive is logged and does not block the download.
func (s *Server) download(c *gin.Context, name, contentType string, data []byte) {
	url, err := s.app.Sessions.ArchiveExport(c.Request.Context(), sessionID(c), name, data)
	if err != nil {
		log.Printf("[Export] failed to archive %s: %v", name, err)
	} else {
		c.Header("X-Archive-URL", url)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", name))
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) handleExportCSV(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := excel.WriteCSV(&buf, f); err != nil {
		s.fail(c, err, "Error exporting CSV")
		return
	}
	s.download(c, excel.ExportFilename(excel.ExportCSV, s.now()), "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleExportXLSX(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}

	var extra []excel.Sheet
	if c.Query("stats") == "true" {
		describe := analysis.Describe(f).Round()
		sheet := excel.Sheet{Name: "Statistics", Header: append([]string{"Statistic"}, describe.Columns...)}
		for i, stat := range describe.Index {
			sheet.Rows = append(sheet.Rows, append([]interface{}{stat}, describe.Values[i]...))
		}
		extra = append(extra, sheet)
	}

	var buf bytes.Buffer
	if err := excel.WriteXLSX(&buf, f, extra...); err != nil {
		s.fail(c, err, "Error exporting Excel")
		return
	}
	s.download(c, excel.ExportFilename(excel.ExportXLSX, s.now()),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *Server) handleReportPDF(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	now := s.now()
	summary := s.app.Analyzer.Summarize(f)

	var buf bytes.Buffer
	if err := s.app.Reports.GeneratePDF(c.Request.Context(), &buf, f, summary, now); err != nil {
		s.fail(c, err, "Error generating report")
		return
	}
	log.Printf("[Report] generated %d byte report for session %s", buf.Len(), sessionID(c).Short())
	s.download(c, excel.ExportFilename(excel.ExportReport, now), "application/pdf", buf.Bytes())
}

func (s *Server) handleReportPreview(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	md := report.GenerateMarkdown(f, s.app.Analyzer.Summarize(f), s.now())
	respond(c, Div(Class("report-preview"), Raw(report.RenderHTML(md))), gin.H{"markdown": md})
}
