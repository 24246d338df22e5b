// Package probe wires the diagnostic page into a runnable application: a
// one-shot CGI responder and an HTTP server rendering the same page for
// every request.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/cgiprobe/core/config"
	"github.com/dmitrymomot/cgiprobe/core/logger"
	"github.com/dmitrymomot/cgiprobe/core/metrics"
	"github.com/dmitrymomot/cgiprobe/core/response"
	"github.com/dmitrymomot/cgiprobe/core/router"
	"github.com/dmitrymomot/cgiprobe/core/server"
	"github.com/dmitrymomot/cgiprobe/pkg/diagpage"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "cgiprobe"

type App struct {
	config     Config
	configured bool
	mode       Mode

	logger   *slog.Logger
	renderer *diagpage.Renderer
	metrics  *metrics.Metrics
	router   router.Router[*router.Context]
	server   *server.Server
}

type AppOption func(*App) error

// NewApp loads the configuration, unless WithConfig supplied one, and
// builds every component not injected through options.
func NewApp(opts ...AppOption) (*App, error) {
	app := &App{}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if !app.configured {
		var cfg Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("probe: load config: %w", err)
		}
		app.config = cfg
	}

	if app.mode == "" {
		mode, err := ParseMode(app.config.Mode)
		if err != nil {
			return nil, err
		}
		app.mode = mode
	}

	if app.logger == nil {
		// stdout is the CGI response channel.
		app.logger = logger.New(
			logger.WithEnvironment(app.config.Env, app.config.AppName),
			logger.WithLevel(logger.ParseLevel(app.config.LogLevel)),
			logger.WithOutput(os.Stderr),
		)
	}

	if app.renderer == nil {
		r, err := diagpage.NewFromConfig(app.config.Page)
		if err != nil {
			return nil, fmt.Errorf("probe: renderer: %w", err)
		}
		app.renderer = r
	}

	if app.metrics == nil && app.config.MetricsEnabled {
		app.metrics = metrics.New(MetricsNamespace)
	}

	if app.router == nil {
		app.router = router.New[*router.Context](
			router.WithLogger[*router.Context](app.logger),
			router.WithErrorHandler[*router.Context](response.ErrorHandler[*router.Context]),
		)
	}
	app.routes()

	if app.server == nil {
		s, err := server.NewFromConfig(app.config.Server, server.WithLogger(app.logger))
		if err != nil {
			return nil, fmt.Errorf("probe: server: %w", err)
		}
		app.server = s
	}

	return app, nil
}

// WithConfig skips environment loading.
func WithConfig(cfg Config) AppOption {
	return func(app *App) error {
		app.config = cfg
		app.configured = true
		return nil
	}
}

func WithLogger(log *slog.Logger) AppOption {
	return func(app *App) error {
		if log == nil {
			return errors.New("logger cannot be nil")
		}
		app.logger = log
		return nil
	}
}

func WithRenderer(r *diagpage.Renderer) AppOption {
	return func(app *App) error {
		if r == nil {
			return errors.New("renderer cannot be nil")
		}
		app.renderer = r
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) AppOption {
	return func(app *App) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		app.metrics = m
		return nil
	}
}

func WithRouter(r router.Router[*router.Context]) AppOption {
	return func(app *App) error {
		if r == nil {
			return errors.New("router cannot be nil")
		}
		app.router = r
		return nil
	}
}

func WithServer(s *server.Server) AppOption {
	return func(app *App) error {
		if s == nil {
			return errors.New("server cannot be nil")
		}
		app.server = s
		return nil
	}
}

// WithMode overrides CGIPROBE_MODE.
func WithMode(m Mode) AppOption {
	return func(app *App) error {
		mode, err := ParseMode(string(m))
		if err != nil {
			return err
		}
		app.mode = mode
		return nil
	}
}

// Handler returns the HTTP handler used in serve mode.
func (a *App) Handler() http.Handler {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Mode returns the configured mode, possibly ModeAuto.
func (a *App) Mode() Mode {
	return a.mode
}

// Exec runs the probe in the mode resolved against inv: one CGI response on
// stdout, or an HTTP server until ctx is cancelled.
func (a *App) Exec(ctx context.Context, inv diagpage.Invocation, stdin io.Reader, stdout io.Writer) error {
	mode := a.mode.Resolve(inv)
	a.logger.DebugContext(ctx, "starting probe",
		logger.Mode(string(mode)),
		logger.Layout(a.renderer.Layout().Name),
		logger.Count("env_entries", inv.Len()),
	)
	if mode == ModeCGI {
		return a.RunCGI(ctx, inv, stdin, stdout)
	}
	return a.Run(ctx)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(a.server.Run(ctx, a.router))
	return g.Wait()
}
