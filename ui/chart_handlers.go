package ui

import (
	"net/http"

	"dataanalyst/internal/errors"
	"dataanalyst/internal/visualization"

	"github.com/gin-gonic/gin"
)

const (
	themeDark  = "dark"
	themeLight = "light"
)

// theme reads the dashboard theme cookie, defaulting to light
func (s *Server) theme(c *gin.Context) string {
	if v, _ := c.Cookie(themeCookie); v == themeDark {
		return themeDark
	}
	return themeLight
}

// themeIconFor returns the toggle icon: a moon offers dark mode, a sun offers light
func themeIconFor(theme string) string {
	if theme == themeDark {
		return "fa-sun"
	}
	return "fa-moon"
}

func plotTemplate(theme string) string {
	if theme == themeDark {
		return visualization.TemplateDark
	}
	return visualization.TemplateLight
}

func (s *Server) visualizer(c *gin.Context) *visualization.Visualizer {
	return s.app.Visualizer(plotTemplate(s.theme(c)))
}

func (s *Server) handleTheme(c *gin.Context) {
	next := themeDark
	if s.theme(c) == themeDark {
		next = themeLight
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(themeCookie, next, 365*24*3600, "/", "", s.cfg.Session.CookieSecure, false)

	icon := themeIconFor(next)
	c.Header("HX-Trigger", `{"themeChanged":"`+next+`"}`)
	respond(c, themeIcon(icon), gin.H{"theme": next, "icon": icon})
}

func (s *Server) handleChart(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	var req visualization.ChartRequest
	if err := c.ShouldBind(&req); err != nil {
		s.fail(c, errors.InvalidInput("invalid chart request: "+err.Error()), "")
		return
	}

	fig, err := visualization.BuildChart(f, req)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	fig = fig.Update(visualization.Layout{"template": plotTemplate(s.theme(c))})
	respond(c, figure(fig), fig)
}

func (s *Server) handleVisualize(c *gin.Context) {
	f, ok := s.frame(c)
	if !ok {
		return
	}
	v := s.visualizer(c)

	var fig visualization.Figure
	switch kind := c.Param("kind"); kind {
	case "distribution":
		fig = v.DistributionPlot(f, c.Query("column"))
	case "box":
		fig = v.BoxPlot(f, c.Query("column"))
	case "bar":
		fig = v.BarChart(f, c.Query("column"))
	case "correlation":
		fig = v.CorrelationHeatmap(f)
	case "grouped":
		var err error
		fig, err = v.GroupedBarChart(f, c.Query("category"), c.Query("numeric"))
		if err != nil {
			s.fail(c, err, "Error creating chart")
			return
		}
	case "scatter-matrix":
		fig = v.ScatterMatrix(f, c.QueryArray("columns"))
	default:
		s.fail(c, errors.NotFound("visualization "+kind), "")
		return
	}
	respond(c, figure(fig), fig)
}
