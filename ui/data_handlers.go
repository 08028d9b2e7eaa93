package ui

import (
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/analysis"
	"dataanalyst/internal/errors"
	"dataanalyst/internal/session"
	"dataanalyst/internal/visualization"

	"github.com/gin-gonic/gin"
	. "maragu.dev/gomponents"
)

const (
	previewRows     = 50
	previewPageSize = 10

	msgSelectVariables = "Please select variables for analysis."
	msgNoFile          = "Please select a file to upload."
)

type metrics struct {
	Records     string `json:"records"`
	Columns     int    `json:"columns"`
	Numeric     int    `json:"numeric"`
	Categorical int    `json:"categorical"`
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// respond renders node for HTMX requests and payload as JSON otherwise
func respond(c *gin.Context, node Node, payload interface{}) {
	if isHTMX(c) {
		renderHTML(c.Writer, http.StatusOK, node)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// fail reports err to the user. HTMX swaps always get 200 so the alert
// replaces the target; JSON clients get the mapped status code.
func (s *Server) fail(c *gin.Context, err error, context string) {
	var msg string
	if errors.Is(err, session.ErrNoData) {
		msg = session.ErrNoData.Message
	} else {
		msg = s.errHandler.Handle(err, context)
	}

	if isHTMX(c) {
		kind := "danger"
		switch errors.GetCode(err) {
		case errors.CodeNotFound, errors.CodeValidationError:
			kind = "warning"
		}
		renderHTML(c.Writer, http.StatusOK, alert(kind, msg))
		return
	}
	c.JSON(errors.HTTPStatus(err), gin.H{"error": msg, "code": errors.GetCode(err)})
}

func (s *Server) frame(c *gin.Context) (*dataset.Frame, bool) {
	f, err := s.app.Sessions.Frame(c.Request.Context(), sessionID(c))
	if err != nil {
		s.fail(c, err, "Error loading data")
		return nil, false
	}
	return f, true
}

func (s *Server) handleIndex(c *gin.Context) {
	theme := s.theme(c)
	var filename string
	if ds, err := s.app.Sessions.Dataset(c.Request.Context(), sessionID(c)); err == nil {
		filename = ds.OriginalFilename
	}
	s.renderTemplate(c, "index.html", gin.H{
		"Theme":      theme,
		"Icon":       themeIconFor(theme),
		"Filename":   filename,
		"ChartTypes": visualization.ChartTypes,
		"MaxMB":      s.cfg.Upload.MaxMB,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.fail(c, err, "Error processing file")
			return
		}
		s.fail(c, errors.ValidationError(msgNoFile), "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(c, err, "Error processing file")
		return
	}

	ds, err := s.app.Sessions.Load(c.Request.Context(), sessionID(c), header.Filename, data)
	if err != nil {
		context := "Error processing file"
		if errors.GetCode(err) == errors.CodeUnsupportedFile {
			context = ""
		}
		s.fail(c, err, context)
		return
	}

	msg := fmt.Sprintf("Successfully loaded %s with %d rows and %d columns.",
		ds.OriginalFilename, ds.RecordCount, ds.FieldCount)
	log.Printf("[Upload] %s", msg)
	c.Header("HX-Trigger", "dataLoaded")
	respond(c, alert("success", msg), gin.H{
		"message": msg,
		"dataset": ds,
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	m := metrics{
		Records:     thousands(f.Rows()),
		Columns:     f.Width(),
		Numeric:     len(f.NumericColumns()),
		Categorical: len(f.CategoricalColumns()),
	}
	respond(c, metricCards(m), m)
}

// thousands formats n with comma separators
func thousands(n int) string {
	s := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

func (s *Server) handlePreview(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	head := f.Head(previewRows)
	pages := int(math.Max(1, math.Ceil(float64(head.Rows())/previewPageSize)))

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * previewPageSize
	view := head.Slice(start, min(start+previewPageSize, head.Rows()))

	rows := make([][]string, view.Rows())
	for i := range rows {
		rows[i] = view.Record(i)
	}
	respond(c, Group{frameTable(view), pager(page, pages)}, gin.H{
		"columns": view.Names(),
		"rows":    rows,
		"page":    page,
		"pages":   pages,
		"total":   f.Rows(),
	})
}

type columnType struct {
	Column string `json:"column"`
	Type   string `json:"type"`
}

type missingCount struct {
	Column     string  `json:"column"`
	Missing    int     `json:"missing"`
	Percentage float64 `json:"percentage"`
}

func (s *Server) handleSummary(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}

	types := make([]columnType, 0, f.Width())
	missing := make([]missingCount, 0, f.Width())
	typeRows := make([][]string, 0, f.Width())
	missingRows := make([][]string, 0, f.Width())
	for _, col := range f.Columns {
		n := col.MissingCount()
		pct := float64(n) / float64(f.Rows()) * 100
		types = append(types, columnType{Column: col.Name, Type: col.Kind.DType()})
		missing = append(missing, missingCount{Column: col.Name, Missing: n, Percentage: analysis.Round2(pct)})
		typeRows = append(typeRows, []string{col.Name, col.Kind.DType()})
		missingRows = append(missingRows, []string{col.Name, strconv.Itoa(n), fmt.Sprintf("%.2f%%", pct)})
	}
	describe := analysis.Describe(f).Round()

	respond(c, Group{
		section("Data Types", dataTable([]string{"Column", "Type"}, typeRows)),
		section("Missing Values", dataTable([]string{"Column", "Missing", "Percentage"}, missingRows)),
		section("Descriptive Statistics", describeTable(describe)),
	}, gin.H{
		"dtypes":   types,
		"missing":  missing,
		"describe": describe,
	})
}

func (s *Server) handleVariables(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	names := f.Names()
	switch c.Query("kind") {
	case "numeric":
		names = f.NumericColumns()
	case "categorical":
		names = f.CategoricalColumns()
	}
	respond(c, options(names), gin.H{
		"columns":     names,
		"numeric":     f.NumericColumns(),
		"categorical": f.CategoricalColumns(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	vars := c.QueryArray("vars")
	if len(vars) == 0 {
		respond(c, message(msgSelectVariables), gin.H{"message": msgSelectVariables})
		return
	}

	sub, err := f.Select(vars...)
	if err != nil {
		s.fail(c, errors.WithCode(errors.CodeNotFound, err), "Error analyzing variables")
		return
	}
	result, err := s.app.Analyzer.Analyze(c.Request.Context(), sub)
	if err != nil {
		s.fail(c, err, "Error analyzing variables")
		return
	}

	describe := result.Describe.Round()
	nodes := Group{section("Descriptive Statistics", describeTable(describe))}
	payload := gin.H{"describe": describe, "analysis": result}
	if len(sub.NumericColumns()) > 1 {
		fig := s.visualizer(c).CorrelationFigure(result.Correlation, "Correlation Matrix").
			Update(visualization.Layout{"template": visualization.TemplateLight, "height": 500})
		nodes = append(nodes, section("Correlation Matrix", figure(fig)))
		payload["correlation"] = fig
	}
	respond(c, nodes, payload)
}

func (s *Server) handleInsights(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	insights := analysis.GenerateInsights(f)
	respond(c, insightsCards(insights), insights)
}

func (s *Server) handleClean(c *gin.Context) {
	before, ok := s.frame(c)
	if !ok {
		return
	}
	rows := before.Rows()

	cleaned, err := s.app.Sessions.Clean(c.Request.Context(), sessionID(c))
	if err != nil {
		s.fail(c, err, "Error cleaning data")
		return
	}

	msg := fmt.Sprintf("Cleaned data: removed %d duplicate rows, %d rows and %d columns remain.",
		rows-cleaned.Rows(), cleaned.Rows(), cleaned.Width())
	c.Header("HX-Trigger", "dataLoaded")
	respond(c, alert("success", msg), gin.H{
		"message": msg,
		"rows":    cleaned.Rows(),
		"columns": cleaned.Width(),
		"types":   s.app.Processor.GetColumnTypes(cleaned),
	})
}
