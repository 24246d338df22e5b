package health

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/cgiprobe/core/handler"
	"github.com/dmitrymomot/cgiprobe/core/logger"
	"github.com/dmitrymomot/cgiprobe/core/response"
)

// Check is a single readiness dependency.
type Check func(context.Context) error

// Readiness runs every check in order. It answers "READY" when all pass and
// 503 Service Unavailable on the first failure.
//
//	r.Get("/health/ready", health.Readiness[*router.Context](log, renderer.SelfCheck))
func Readiness[C handler.Context](log *slog.Logger, checks ...Check) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err), logger.Component("health"))
				return response.Error(response.ErrServiceUnavailable.WithError(err))
			}
		}
		return response.String("READY")
	}
}
