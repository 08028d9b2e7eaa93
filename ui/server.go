package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"dataanalyst/internal/config"
	"dataanalyst/internal/container"
	"dataanalyst/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

//go:embed templates/*.html static
var embeddedFiles embed.FS

// Server is the DataAnalyst Pro dashboard
type Server struct {
	router     *gin.Engine
	app        *container.Container
	cfg        *config.Config
	templates  *template.Template
	errHandler *errors.Handler
	now        func() time.Time
	httpServer *http.Server
}

// NewServer builds the dashboard on top of an initialized container
func NewServer(app *container.Container) (*Server, error) {
	if app == nil || app.Sessions == nil {
		return nil, fmt.Errorf("container must be initialized with a database")
	}

	if app.Config.Server.GinMode != "" {
		gin.SetMode(app.Config.Server.GinMode)
	}

	templates, err := template.New("").Funcs(template.FuncMap{
		"upper": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:     gin.New(),
		app:        app,
		cfg:        app.Config,
		templates:  templates,
		errHandler: errors.NewHandler(nil),
		now:        time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger(), gin.Recovery())

	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		log.Printf("[setupMiddleware] Error creating static filesystem: %v", err)
		return
	}
	s.router.StaticFS("/static", http.FS(staticFS))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	withSession := s.router.Group("/", s.sessionMiddleware())

	withSession.GET("/", s.handleIndex)
	withSession.POST("/api/theme", s.handleTheme)

	api := withSession.Group("/api")
	api.POST("/upload", rateLimiter(s.cfg.RateLimit), s.limitBody(), s.handleUpload)
	api.GET("/metrics", s.handleMetrics)
	api.GET("/preview", s.handlePreview)
	api.GET("/summary", s.handleSummary)
	api.GET("/variables", s.handleVariables)
	api.GET("/stats", s.handleStats)
	api.POST("/chart", s.handleChart)
	api.GET("/visualize/:kind", s.handleVisualize)
	api.GET("/insights", s.handleInsights)
	api.POST("/clean", s.handleClean)

	api.GET("/export/csv", s.handleExportCSV)
	api.GET("/export/xlsx", s.handleExportXLSX)
	api.GET("/report/pdf", s.handleReportPDF)
	api.GET("/report/preview", s.handleReportPreview)
}

// Handler returns the dashboard wrapped in CORS handling when origins are configured
func (s *Server) Handler() http.Handler {
	if len(s.cfg.Server.CORSOrigins) == 0 {
		return s.router
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "HX-Request", "HX-Target", "HX-Current-URL", "HX-Trigger"},
		ExposedHeaders:   []string{"Content-Disposition", "HX-Trigger", "X-Archive-URL"},
		AllowCredentials: true,
		MaxAge:           300,
	})(s.router)
}

// Start serves the dashboard until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Starting DataAnalyst Pro on http://%s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Template helpers
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(c.Writer, templateName, data); err != nil {
		log.Printf("Template error: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
