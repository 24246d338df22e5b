package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/cgiprobe/core/handler"
	"github.com/dmitrymomot/cgiprobe/core/logger"
	"github.com/dmitrymomot/cgiprobe/core/response"
)

// LoggingConfig configures the request logging middleware.
type LoggingConfig struct {
	// Skip bypasses the middleware for matching requests.
	Skip func(ctx handler.Context) bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// LogLevel for successful requests (default: info).
	LogLevel slog.Level
	// LogHeaders adds request headers, with SensitiveHeaders redacted.
	LogHeaders       bool
	SensitiveHeaders []string
	// SlowRequestThreshold escalates slow requests to warn (default: 5s).
	SlowRequestThreshold time.Duration
	// Component defaults to "http".
	Component string
}

// Logging logs one line per completed request with slog.Default().
func Logging[C handler.Context]() handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{})
}

// LoggingWithLogger logs with log.
func LoggingWithLogger[C handler.Context](log *slog.Logger) handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{Logger: log})
}

// LoggingWithConfig logs the request when it arrives at debug level and the
// outcome when the response has been written. 5xx log at error, 4xx and slow
// requests at warn.
func LoggingWithConfig[C handler.Context](cfg LoggingConfig) handler.Middleware[C] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = slog.LevelInfo
	}
	if cfg.SensitiveHeaders == nil {
		cfg.SensitiveHeaders = []string{"Authorization", "Cookie", "X-Api-Key", "X-Auth-Token"}
	}
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}
	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			start := time.Now()
			req := ctx.Request()
			requestID, _ := GetRequestID(ctx)

			attrs := []slog.Attr{
				logger.Component(cfg.Component),
				logger.Method(req.Method),
				logger.Path(req.URL.Path),
				logger.RemoteAddr(req.RemoteAddr),
			}
			if requestID != "" {
				attrs = append(attrs, logger.RequestID(requestID))
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, logger.Query(req.URL.RawQuery))
			}
			if req.ContentLength > 0 {
				attrs = append(attrs, logger.BytesIn(req.ContentLength))
			}
			if cfg.LogHeaders {
				attrs = append(attrs, slog.Any("request_headers", redact(req.Header, cfg.SensitiveHeaders)))
			}

			cfg.Logger.LogAttrs(req.Context(), slog.LevelDebug, "HTTP request started",
				append(attrs, logger.Event("request"))...)

			resp := next(ctx)
			if resp == nil {
				return nil
			}

			return func(w http.ResponseWriter, r *http.Request) error {
				rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
				err := resp(rec, r)
				duration := time.Since(start)

				status := rec.status
				if err != nil && !rec.wroteHeader {
					status = response.AsHTTPError(err).Status
				}

				out := append(slices.Clip(attrs),
					logger.Event("response"),
					logger.StatusCode(status),
					logger.BytesOut(rec.size),
					logger.Duration(duration),
				)

				level := cfg.LogLevel
				switch {
				case status >= 500:
					level = slog.LevelError
					if err != nil {
						out = append(out, logger.Error(err))
					}
				case status >= 400:
					level = slog.LevelWarn
				case duration > cfg.SlowRequestThreshold:
					level = slog.LevelWarn
					out = append(out, slog.Bool("slow_request", true))
				}

				cfg.Logger.LogAttrs(r.Context(), level, "HTTP request completed", out...)
				return err
			}
		}
	}
}

func redact(h http.Header, sensitive []string) map[string]any {
	headers := make(map[string]any, len(h))
	for key, values := range h {
		switch {
		case slices.Contains(sensitive, key):
			headers[key] = "[REDACTED]"
		case len(values) == 1:
			headers[key] = values[0]
		default:
			headers[key] = values
		}
	}
	return headers
}

// statusRecorder captures the status and size written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	size        int64
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(status int) {
	if !rw.wroteHeader {
		rw.status = status
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
