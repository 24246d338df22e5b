package probe

import (
	"github.com/dmitrymomot/cgiprobe/core/handler"
	"github.com/dmitrymomot/cgiprobe/core/health"
	"github.com/dmitrymomot/cgiprobe/core/response"
	"github.com/dmitrymomot/cgiprobe/core/router"
	"github.com/dmitrymomot/cgiprobe/middleware"
)

const (
	pathLive    = "/health/live"
	pathReady   = "/health/ready"
	pathMetrics = "/metrics"
)

func isProbePath(ctx handler.Context) bool {
	switch ctx.Request().URL.Path {
	case pathLive, pathReady, pathMetrics:
		return true
	}
	return false
}

func (a *App) routes() {
	a.router.Use(
		middleware.RequestIDWithConfig[*router.Context](middleware.RequestIDConfig{UseExisting: true}),
		middleware.LoggingWithConfig[*router.Context](middleware.LoggingConfig{
			Logger:    a.logger,
			Component: "probe",
		}),
		middleware.BodyLimitWithSize[*router.Context](a.config.MaxBodySize),
	)

	if a.metrics != nil {
		exposition := a.metrics.Handler()
		a.router.Use(middleware.Metrics[*router.Context](a.metrics, isProbePath))
		a.router.Get(pathMetrics, func(*router.Context) handler.Response {
			return response.Handler(exposition)
		})
	}

	a.router.Get(pathLive, health.Liveness[*router.Context])
	a.router.Get(pathReady, health.Readiness[*router.Context](a.logger, a.renderer.SelfCheck))

	a.router.Handle("/*", a.page)
}
