package server

import (
	"net/http"
	"strings"

	"github.com/berfenger/goodwe2prom/pkg/goodwe"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const CONTENT_TYPE_EXPOSITION = "text/plain; version=0.0.4; charset=utf-8"

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/", s.MetricsHandler)
	e.GET("/metrics", s.MetricsHandler)
	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.metrics != nil {
		e.GET("/internal/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	return e
}

// MetricsHandler renders every set that decoded, partial ones included.
// It fails only when nothing could be rendered.
func (s *Server) MetricsHandler(c echo.Context) error {
	resp, err := s.inverter.Scrape(c.Request().Context())
	if err != nil {
		s.logger.Error("scrape failed", zap.Error(err))
		return c.String(http.StatusServiceUnavailable, "scrape failed: "+err.Error()+"\n")
	}

	var failures []string
	for _, failed := range resp.Errors() {
		s.logger.Warn("read failed", zap.String("set", failed.Set.Name), zap.Error(failed.Error))
		failures = append(failures, failed.Set.Name+": "+failed.Error.Error())
	}

	sets := resp.Renderable()
	if len(sets) == 0 {
		return c.String(http.StatusServiceUnavailable, "no metric set could be read\n"+strings.Join(failures, "\n")+"\n")
	}
	return c.Blob(http.StatusOK, CONTENT_TYPE_EXPOSITION, []byte(goodwe.Render(sets...)))
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.inverter.Health(c.Request().Context())
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if res.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}
