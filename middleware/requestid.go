package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cgiprobe/core/handler"
)

// DefaultRequestIDHeader carries the request ID in both directions.
const DefaultRequestIDHeader = "X-Request-ID"

type requestIDContextKey struct{}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	// Skip bypasses the middleware for matching requests.
	Skip func(ctx handler.Context) bool
	// Generator creates new IDs (default: UUID v4).
	Generator func() string
	// HeaderName defaults to X-Request-ID.
	HeaderName string
	// UseExisting keeps a non-empty incoming ID instead of generating one.
	UseExisting bool
}

// RequestID tags every request with a fresh UUID.
func RequestID[C handler.Context]() handler.Middleware[C] {
	return RequestIDWithConfig[C](RequestIDConfig{})
}

// RequestIDWithConfig stores the ID in the request context and echoes it in
// the response header.
func RequestIDWithConfig[C handler.Context](cfg RequestIDConfig) handler.Middleware[C] {
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultRequestIDHeader
	}
	if cfg.Generator == nil {
		cfg.Generator = func() string { return uuid.New().String() }
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			var id string
			if cfg.UseExisting {
				id = ctx.Request().Header.Get(cfg.HeaderName)
			}
			if id == "" {
				id = cfg.Generator()
			}

			ctx.SetValue(requestIDContextKey{}, id)
			resp := next(ctx)
			if resp == nil {
				return nil
			}

			return func(w http.ResponseWriter, r *http.Request) error {
				w.Header().Set(cfg.HeaderName, id)
				return resp(w, r)
			}
		}
	}
}

// GetRequestID returns the request ID stored by the middleware.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey{}).(string)
	return id, ok && id != ""
}

// WithRequestID stores id in ctx. CGI invocations use it to tag a
// one-shot render the same way the middleware tags HTTP requests.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}
