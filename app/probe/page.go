package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cgiprobe/core/handler"
	"github.com/dmitrymomot/cgiprobe/core/logger"
	"github.com/dmitrymomot/cgiprobe/core/metrics"
	"github.com/dmitrymomot/cgiprobe/core/response"
	"github.com/dmitrymomot/cgiprobe/core/router"
	"github.com/dmitrymomot/cgiprobe/middleware"
	"github.com/dmitrymomot/cgiprobe/pkg/cgienv"
	"github.com/dmitrymomot/cgiprobe/pkg/diagpage"
)

// page renders the diagnostic page for an HTTP request, reporting the
// request the way a CGI host would have passed it.
func (a *App) page(ctx *router.Context) handler.Response {
	req := ctx.Request()
	inv := cgienv.FromRequest(req,
		cgienv.WithStyle(cgienv.StyleForLayout(a.renderer.Layout())),
		cgienv.WithScriptName(a.config.ScriptName),
		cgienv.WithServerSoftware(a.config.AppName),
	)

	page, err := a.renderer.Render(ctx, inv, req.Body)
	if err != nil {
		outcome, httpErr := classify(err)
		a.observeRender(ModeServe, outcome, inv)
		return response.Error(httpErr)
	}
	a.observeRender(ModeServe, metrics.OutcomeOK, inv)

	// Pages differ per request.
	return response.WithCache(
		response.BytesWithStatus(page.Bytes(), page.ContentType(), http.StatusOK),
		0,
	)
}

// ErrRequestFailed marks a CGI request that was answered with a Status
// response. RunCGI has already logged the cause.
var ErrRequestFailed = errors.New("probe: request failed")

// RunCGI answers one CGI invocation: the page on stdout, or a CGI Status
// response when the request cannot be rendered.
func (a *App) RunCGI(ctx context.Context, inv diagpage.Invocation, stdin io.Reader, stdout io.Writer) error {
	id := uuid.New().String()
	ctx = middleware.WithRequestID(ctx, id)
	log := a.logger.With(
		logger.Mode(string(ModeCGI)),
		logger.RequestID(id),
		logger.Layout(a.renderer.Layout().Name),
	)

	page, err := a.renderer.Render(ctx, inv, stdin)
	if err != nil {
		outcome, httpErr := classify(err)
		a.observeRender(ModeCGI, outcome, inv)
		log.ErrorContext(ctx, "render failed", logger.Error(err), logger.StatusCode(httpErr.Status))
		if werr := writeCGIError(stdout, httpErr); werr != nil {
			return errors.Join(err, werr)
		}
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	a.observeRender(ModeCGI, metrics.OutcomeOK, inv)

	n, err := page.WriteCGITo(stdout)
	if err != nil {
		return fmt.Errorf("probe: write response: %w", err)
	}
	log.InfoContext(ctx, "page rendered", logger.BytesOut(n))
	return nil
}

// classify maps a render error to a metrics outcome and an HTTP error.
func classify(err error) (string, response.HTTPError) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, diagpage.ErrMalformedLength):
		return metrics.OutcomeMalformed, response.ErrBadRequest.
			WithMessage("Malformed content length").
			WithError(err)
	case errors.As(err, &tooLarge):
		return metrics.OutcomeBodyError, response.ErrRequestEntityTooLarge.
			WithDetails(map[string]any{"limit": tooLarge.Limit})
	case errors.Is(err, diagpage.ErrBodyRead):
		return metrics.OutcomeBodyError, response.ErrBadRequest.
			WithMessage("Failed to read request body").
			WithError(err)
	}
	return metrics.OutcomeError, response.ErrInternalServerError.WithError(err)
}

func (a *App) observeRender(mode Mode, outcome string, inv diagpage.Invocation) {
	if a.metrics == nil {
		return
	}
	layout := a.renderer.Layout()
	a.metrics.ObserveRender(layout.Name, string(mode), outcome)
	if outcome != metrics.OutcomeOK || !layout.IsPost(inv) {
		return
	}
	if n, err := layout.ContentLength(inv); err == nil && n > 0 {
		a.metrics.ObserveBody(n)
	}
}

// writeCGIError writes a CGI response carrying a Status header.
func writeCGIError(w io.Writer, e response.HTTPError) error {
	_, err := fmt.Fprintf(w, "Status: %d %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\n",
		e.Status, http.StatusText(e.Status), e.Message)
	return err
}
