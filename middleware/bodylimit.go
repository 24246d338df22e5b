package middleware

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/cgiprobe/core/handler"
	"github.com/dmitrymomot/cgiprobe/core/response"
)

// Common size constants.
const (
	KB int64 = 1024
	MB       = 1024 * KB
)

// DefaultBodyLimit matches CGIPROBE_MAX_BODY's default.
const DefaultBodyLimit = 4 * MB

// BodyLimitConfig configures the request body limit middleware.
type BodyLimitConfig struct {
	// Skip bypasses the middleware for matching requests.
	Skip func(ctx handler.Context) bool
	// MaxSize is the maximum accepted body size in bytes (default: 4MB).
	MaxSize int64
	// ErrorHandler answers requests whose declared length exceeds MaxSize.
	ErrorHandler func(ctx handler.Context, contentLength, maxSize int64) handler.Response
}

// BodyLimit rejects bodies larger than 4MB.
func BodyLimit[C handler.Context]() handler.Middleware[C] {
	return BodyLimitWithConfig[C](BodyLimitConfig{})
}

// BodyLimitWithSize rejects bodies larger than maxSize bytes.
func BodyLimitWithSize[C handler.Context](maxSize int64) handler.Middleware[C] {
	return BodyLimitWithConfig[C](BodyLimitConfig{MaxSize: maxSize})
}

// BodyLimitWithConfig rejects requests whose Content-Length exceeds the limit
// up front and caps the body reader for the rest. Reading past the cap fails
// with *http.MaxBytesError.
func BodyLimitWithConfig[C handler.Context](cfg BodyLimitConfig) handler.Middleware[C] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultBodyLimit
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ handler.Context, contentLength, maxSize int64) handler.Response {
			return response.Error(response.ErrRequestEntityTooLarge.
				WithMessage(fmt.Sprintf("Request body too large. Size: %s, Maximum allowed: %s",
					formatBytes(contentLength), formatBytes(maxSize))).
				WithDetails(map[string]any{"size": contentLength, "limit": maxSize}))
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			if req.ContentLength > cfg.MaxSize {
				return cfg.ErrorHandler(ctx, req.ContentLength, cfg.MaxSize)
			}
			if req.Body != nil && req.Body != http.NoBody {
				req.Body = http.MaxBytesReader(ctx.ResponseWriter(), req.Body, cfg.MaxSize)
			}

			return next(ctx)
		}
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= MB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(MB))
	case n >= KB:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
