package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dataanalyst/adapters/sqlstore"
	"dataanalyst/internal/config"
	"dataanalyst/internal/container"
	"dataanalyst/internal/migration"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "region,units,price\n" +
	"north,1200,2.5\n" +
	"south,5,1.0\n" +
	"north,7,\n"

var fixedNow = time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	ctx := context.Background()

	cfg := config.Defaults()
	cfg.Server.GinMode = gin.TestMode
	cfg.Storage.LocalDir = t.TempDir()
	cfg.RateLimit = config.RateLimitConfig{RPS: 100, Burst: 100}
	if mutate != nil {
		mutate(cfg)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqlstore.Open(ctx, "sqlite3", fmt.Sprintf("file:ui_%s?mode=memory&cache=shared&_foreign_keys=on", name))
	require.NoError(t, err)
	require.NoError(t, migration.NewRunner("sqlite3").Run(ctx, db))

	app, err := container.New(cfg)
	require.NoError(t, err)
	require.NoError(t, app.InitWithDatabase(ctx, db))
	t.Cleanup(func() { _ = app.Shutdown(ctx) })

	s, err := NewServer(app)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	return s
}

// browser replays the cookies a real browser would keep between requests
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, s *Server) *browser {
	return &browser{t: t, handler: s.Handler(), cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return b.do(req)
}

func (b *browser) upload(name, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(b.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestIndexSetsSessionCookie(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))

	w := b.get("/", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "DataAnalyst Pro")
	assert.Contains(t, w.Body.String(), `data-theme="light"`)
	assert.Contains(t, w.Body.String(), "fa-moon")

	cookie, ok := b.cookies[sessionCookie]
	require.True(t, ok)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	// the same session survives the next request
	b.get("/", false)
	assert.Equal(t, cookie.Value, b.cookies[sessionCookie].Value)
}

func TestNoDataResponses(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))

	for _, path := range []string{"/api/metrics", "/api/preview", "/api/summary", "/api/insights", "/api/export/csv"} {
		w := b.get(path, false)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "No data uploaded yet.", decode(t, w)["error"], path)
	}

	w := b.get("/api/metrics", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No data uploaded yet.")
}

func TestUploadAndMetrics(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))

	w := b.upload("sales.csv", salesCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "dataLoaded", w.Header().Get("HX-Trigger"))
	assert.Equal(t, "Successfully loaded sales.csv with 3 rows and 3 columns.", decode(t, w)["message"])

	w = b.get("/api/metrics", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{
		"records":     "3",
		"columns":     float64(3),
		"numeric":     float64(2),
		"categorical": float64(1),
	}, decode(t, w))

	w = b.get("/api/metrics", true)
	assert.Contains(t, w.Body.String(), `<div class="metric-label">Records</div>`)
}

func TestUploadErrors(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))

	w := b.upload("notes.txt", "hello")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unsupported file type. Please upload CSV or Excel file.", decode(t, w)["error"])

	w = b.upload("empty.csv", "a,b\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Error processing file: DataFrame is empty.", decode(t, w)["error"])

	w = b.do(httptest.NewRequest(http.MethodPost, "/api/upload", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgNoFile, decode(t, w)["error"])
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Upload.MaxMB = 1 })
	b := newBrowser(t, s)

	w := b.upload("big.csv", "x\n"+strings.Repeat("1\n", 1<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestThousands(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -45000: "-45,000"}
	for n, want := range tests {
		assert.Equal(t, want, thousands(n))
	}
}

func TestPreviewPaging(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))
	var csv strings.Builder
	csv.WriteString("id,value\n")
	for i := 0; i < 73; i++ {
		fmt.Fprintf(&csv, "%d,%d\n", i, i*2)
	}
	require.Equal(t, http.StatusOK, b.upload("big.csv", csv.String()).Code)

	out := decode(t, b.get("/api/preview", false))
	assert.Equal(t, float64(1), out["page"])
	assert.Equal(t, float64(5), out["pages"])
	assert.Equal(t, float64(73), out["total"])
	assert.Len(t, out["rows"], 10)

	out = decode(t, b.get("/api/preview?page=99", false))
	assert.Equal(t, float64(5), out["page"])
	rows := out["rows"].([]interface{})
	require.Len(t, rows, 10)
	assert.Equal(t, []interface{}{"49", "98"}, rows[9])

	w := b.get("/api/preview?page=2", true)
	assert.Contains(t, w.Body.String(), "Page 2 of 5")
}

func TestSummary(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))
	require.Equal(t, http.StatusOK, b.upload("sales.csv", salesCSV).Code)

	out := decode(t, b.get("/api/summary", false))
	missing := out["missing"].([]interface{})
	require.Len(t, missing, 3)
	assert.Equal(t, map[string]interface{}{"column": "price", "missing": float64(1), "percentage": 33.33}, missing[2])

	html := b.get("/api/summary", true).Body.String()
	assert.Contains(t, html, "Data Types")
	assert.Contains(t, html, "<td>33.33%</td>")
	assert.Contains(t, html, "<th>Statistic</th>")
}

func TestStats(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))
	require.Equal(t, http.StatusOK, b.upload("sales.csv", salesCSV).Code)

	out := decode(t, b.get("/api/stats", false))
	assert.Equal(t, msgSelectVariables, out["message"])

	out = decode(t, b.get("/api/stats?vars=units&vars=price", false))
	require.Contains(t, out, "correlation")
	layout := out["correlation"].(map[string]interface{})["layout"].(map[string]interface{})
	assert.Equal(t, "plotly_white", layout["template"])
	assert.Equal(t, float64(500), layout["height"])

	out = decode(t, b.get("/api/stats?vars=region", false))
	assert.NotContains(t, out, "correlation")

	w := b.get("/api/stats?vars=nope", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChart(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))
	require.Equal(t, http.StatusOK, b.upload("sales.csv", salesCSV).Code)

	post := func(form string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/chart", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return b.do(req)
	}

	w := post("chart_type=bar")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please select an X-axis variable.", decode(t, w)["error"])

	w = post("chart_type=scatter&x_axis=units&y_axis=price")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Len(t, out["data"], 1)
	assert.Equal(t, "plotly_white", out["layout"].(map[string]interface{})["template"])
}

func TestVisualize(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))
	require.Equal(t, http.StatusOK, b.upload("sales.csv", salesCSV).Code)

	for _, path := range []string{
		"/api/visualize/distribution?column=units",
		"/api/visualize/box?column=price",
		"/api/visualize/bar?column=region",
		"/api/visualize/correlation",
		"/api/visualize/grouped?category=region&numeric=units",
		"/api/visualize/scatter-matrix?columns=units&columns=price",
	} {
		w := b.get(path, false)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, decode(t, w)["data"], path)
	}

	assert.Equal(t, http.StatusNotFound, b.get("/api/visualize/pie", false).Code)

	w := b.get("/api/visualize/correlation", true)
	assert.Contains(t, w.Body.String(), `data-figure="`)
}

func TestInsightsAndClean(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))
	require.Equal(t, http.StatusOK, b.upload("dups.csv", salesCSV+"south,5,1.0\n").Code)

	html := b.get("/api/insights", true).Body.String()
	assert.Contains(t, html, "Dataset Overview")
	assert.Contains(t, html, "Your dataset contains 4 records with 3 variables.")
	assert.Contains(t, html, "Missing Data")

	req := httptest.NewRequest(http.MethodPost, "/api/clean", nil)
	w := b.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, float64(3), out["rows"])
	assert.Contains(t, out["message"], "removed 1 duplicate rows")

	metrics := decode(t, b.get("/api/metrics", false))
	assert.Equal(t, "3", metrics["records"])
}

func TestExports(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))
	require.Equal(t, http.StatusOK, b.upload("sales.csv", salesCSV).Code)

	w := b.get("/api/export/csv", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="data_export_20240309_140506.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "region,units,price\n"))
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Archive-URL"), "file://"))

	w = b.get("/api/export/xlsx?stats=true", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="data_export_20240309_140506.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = b.get("/api/report/pdf", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="data_analysis_report_20240309_140506.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = b.get("/api/report/preview", true)
	assert.Contains(t, w.Body.String(), "Data Analysis Report</h1>")
}

func TestThemeToggle(t *testing.T) {
	b := newBrowser(t, newTestServer(t, nil))

	post := func(htmx bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/theme", nil)
		if htmx {
			req.Header.Set("HX-Request", "true")
		}
		return b.do(req)
	}

	w := post(false)
	assert.Equal(t, map[string]interface{}{"theme": "dark", "icon": "fa-sun"}, decode(t, w))
	assert.Equal(t, `{"themeChanged":"dark"}`, w.Header().Get("HX-Trigger"))
	assert.Contains(t, b.get("/", false).Body.String(), `data-theme="dark"`)

	w = post(true)
	assert.Equal(t, `<i class="fas fa-moon" id="theme-icon"></i>`, w.Body.String())
	assert.Equal(t, "light", b.cookies[themeCookie].Value)
}

func TestUploadRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RPS: 0.01, Burst: 1}
	})
	b := newBrowser(t, s)

	require.Equal(t, http.StatusOK, b.upload("sales.csv", salesCSV).Code)
	w := b.upload("sales.csv", salesCSV)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate limit exceeded", decode(t, w)["message"])

	// other endpoints are not limited
	assert.Equal(t, http.StatusOK, b.get("/api/metrics", false).Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.CORSOrigins = []string{"http://app.test"}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	req.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminRouter(t *testing.T) {
	s := newTestServer(t, nil)

	get := func(h http.Handler, path string) int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	admin := NewAdminRouter(s.app.DB, true)
	assert.Equal(t, http.StatusOK, get(admin, "/healthz"))
	assert.Equal(t, http.StatusOK, get(admin, "/debug/pprof/"))

	disabled := NewAdminRouter(nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, get(disabled, "/healthz"))
	assert.Equal(t, http.StatusNotFound, get(disabled, "/debug/pprof/"))
}
