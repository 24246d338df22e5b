// Package logger builds log/slog loggers and provides attribute helpers for
// consistent structured logging.
//
//	log := logger.New(logger.WithDevelopment("cgiprobe"))
//	log.Info("page rendered", logger.Method("POST"), logger.BytesOut(1024))
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type options struct {
	level     slog.Level
	json      bool
	output    io.Writer
	attrs     []slog.Attr
	handlerFn *slog.HandlerOptions
}

// Option configures New.
type Option func(*options)

// New builds a logger. Defaults: text format, info level, stdout.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	hopts := o.handlerFn
	if hopts == nil {
		hopts = &slog.HandlerOptions{Level: o.level}
	}

	var h slog.Handler
	if o.json {
		h = slog.NewJSONHandler(o.output, hopts)
	} else {
		h = slog.NewTextHandler(o.output, hopts)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	return slog.New(h)
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithJSONFormatter switches to JSON output.
func WithJSONFormatter() Option {
	return func(o *options) { o.json = true }
}

// WithTextFormatter switches to text output.
func WithTextFormatter() Option {
	return func(o *options) { o.json = false }
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithHandlerOptions replaces the handler options entirely, including level.
func WithHandlerOptions(h *slog.HandlerOptions) Option {
	return func(o *options) { o.handlerFn = h }
}

// WithDevelopment configures text output at debug level.
func WithDevelopment(service string) Option {
	return func(o *options) {
		o.json = false
		o.level = slog.LevelDebug
		o.attrs = append(o.attrs, slog.String("service", service), slog.String("env", "development"))
	}
}

// WithProduction configures JSON output at info level.
func WithProduction(service string) Option {
	return func(o *options) {
		o.json = true
		o.level = slog.LevelInfo
		o.attrs = append(o.attrs, slog.String("service", service), slog.String("env", "production"))
	}
}

// WithEnvironment picks WithDevelopment for "development" and "dev",
// WithProduction for anything else.
func WithEnvironment(env, service string) Option {
	switch strings.ToLower(env) {
	case "development", "dev", "local":
		return WithDevelopment(service)
	default:
		return WithProduction(service)
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// SetAsDefault installs log as the slog default logger.
func SetAsDefault(log *slog.Logger) {
	slog.SetDefault(log)
}
