package middleware

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/cgiprobe/core/handler"
	"github.com/dmitrymomot/cgiprobe/core/response"
)

// RequestObserver receives one observation per finished request.
// *metrics.Metrics implements it.
type RequestObserver interface {
	ObserveRequest(method string, status int, d time.Duration)
}

// Metrics reports method, status and latency of every request to obs.
// Skip bypasses matching requests, typically the /metrics scrape itself.
func Metrics[C handler.Context](obs RequestObserver, skip ...func(ctx handler.Context) bool) handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			for _, s := range skip {
				if s(ctx) {
					return next(ctx)
				}
			}

			start := time.Now()
			method := ctx.Request().Method
			resp := next(ctx)
			if resp == nil {
				obs.ObserveRequest(method, http.StatusInternalServerError, time.Since(start))
				return nil
			}

			return func(w http.ResponseWriter, r *http.Request) error {
				rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
				err := resp(rec, r)
				status := rec.status
				if err != nil && !rec.wroteHeader {
					status = response.AsHTTPError(err).Status
				}
				obs.ObserveRequest(method, status, time.Since(start))
				return err
			}
		}
	}
}
