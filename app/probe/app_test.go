package probe_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cgiprobe/app/probe"
	"github.com/dmitrymomot/cgiprobe/pkg/diagpage"
)

func testConfig() probe.Config {
	cfg := probe.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	return cfg
}

func newApp(t *testing.T, cfg probe.Config, opts ...probe.AppOption) *probe.App {
	t.Helper()

	opts = append([]probe.AppOption{
		probe.WithConfig(cfg),
		probe.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	app, err := probe.NewApp(opts...)
	require.NoError(t, err)
	return app
}

func serve(app *probe.App, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)
	return w
}

func TestServePageGet(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	w := serve(app, httptest.NewRequest(http.MethodGet, "/cgi-bin/test.py?x=1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, "<h1>Hello from Python CGI!</h1>")
	assert.Contains(t, body, "REQUEST_METHOD=GET\n")
	assert.Contains(t, body, "QUERY_STRING=x=1\n")
	assert.Contains(t, body, "<h2>Not a POST request.</h2>")
	assert.NotContains(t, body, "POST Data:")
}

func TestServePagePost(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	w := serve(app, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello=world")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CONTENT_LENGTH=11\n")
	assert.Contains(t, w.Body.String(), "<h2>POST Data:</h2>\n<pre>hello=world</pre>")
}

func TestServePageMalformedLength(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abc"))
	req.ContentLength = 0
	req.Header.Set("Content-Length", "three")

	w := serve(app, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Malformed content length")
}

func TestServePageBodyTooLarge(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxBodySize = 4
	app := newApp(t, cfg)

	w := serve(app, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServePagePersonalized(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Page.Layout = "personalized"
	app := newApp(t, cfg)

	w := serve(app, httptest.NewRequest(http.MethodGet, "/?name=Alice", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>Hello Alice from Python CGI!</h1>")
	assert.Contains(t, w.Body.String(), "request_method=GET\n")

	w = serve(app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), "<h1>Hello Guest from Python CGI!</h1>")
}

func TestServeUnsupportedMethod(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	w := serve(app, httptest.NewRequest("PROPFIND", "/x", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "Method Not Allowed", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServeHealth(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())

	w := serve(app, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ALIVE", w.Body.String())

	w = serve(app, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "READY", w.Body.String())
}

func TestServeMetrics(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	serve(app, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload")))

	w := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `cgiprobe_page_renders_total{layout="classic",mode="serve",outcome="ok"} 1`)
	assert.Contains(t, body, `cgiprobe_http_requests_total{code="200",method="POST"} 1`)
	assert.Contains(t, body, "cgiprobe_post_body_bytes_count 1")
	assert.NotContains(t, body, `method="GET"`)
}

func TestServeMetricsDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MetricsEnabled = false
	app := newApp(t, cfg)

	w := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "<!DOCTYPE html>"))
}

func TestRunCGI(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	inv := diagpage.FromEnviron([]string{
		"GATEWAY_INTERFACE=CGI/1.1",
		"REQUEST_METHOD=POST",
		"CONTENT_LENGTH=5",
	})

	var out bytes.Buffer
	err := app.RunCGI(context.Background(), inv, strings.NewReader("hello world"), &out)
	require.NoError(t, err)

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "Content-Type: text/html\r\n\r\n<!DOCTYPE html>"))
	assert.Contains(t, got, "<pre>hello</pre>")
	assert.NotContains(t, got, "world")
}

func TestRunCGIPersonalizedOmitsHeader(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Page.Layout = "personalized"
	app := newApp(t, cfg)
	inv := diagpage.FromEnviron([]string{"request_method=GET", "query_string=name=Bob"})

	var out bytes.Buffer
	require.NoError(t, app.RunCGI(context.Background(), inv, nil, &out))

	assert.True(t, strings.HasPrefix(out.String(), "<!DOCTYPE html>"))
	assert.Contains(t, out.String(), "Hello Bob from Python CGI!")
}

func TestRunCGIMalformedLength(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	inv := diagpage.FromEnviron([]string{"REQUEST_METHOD=POST", "CONTENT_LENGTH=five"})

	var out bytes.Buffer
	err := app.RunCGI(context.Background(), inv, strings.NewReader("x"), &out)
	require.ErrorIs(t, err, diagpage.ErrMalformedLength)

	assert.True(t, strings.HasPrefix(out.String(), "Status: 400 Bad Request\r\n"))
	assert.NotContains(t, out.String(), "<!DOCTYPE html>")
}

func TestRunCGIFailureLoggedOnce(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	app := newApp(t, testConfig(),
		probe.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
	)
	inv := diagpage.FromEnviron([]string{"REQUEST_METHOD=POST", "CONTENT_LENGTH=five"})

	var out bytes.Buffer
	err := app.RunCGI(context.Background(), inv, strings.NewReader("x"), &out)
	require.ErrorIs(t, err, probe.ErrRequestFailed)
	require.ErrorIs(t, err, diagpage.ErrMalformedLength)

	assert.Equal(t, 1, strings.Count(logs.String(), `"level":"ERROR"`))
	assert.Contains(t, logs.String(), `"msg":"render failed"`)
}

func TestRunCGINegativeLength(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	inv := diagpage.FromEnviron([]string{"REQUEST_METHOD=POST", "CONTENT_LENGTH=-5"})

	var out bytes.Buffer
	require.NoError(t, app.RunCGI(context.Background(), inv, strings.NewReader("x"), &out))

	assert.True(t, strings.HasPrefix(out.String(), "Content-Type: text/html\r\n\r\n<!DOCTYPE html>"))
	assert.Contains(t, out.String(), "<h2>No POST Data.</h2>")
}

func TestExecCGI(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig())
	assert.Equal(t, probe.ModeAuto, app.Mode())

	var out bytes.Buffer
	inv := diagpage.FromEnviron([]string{"GATEWAY_INTERFACE=CGI/1.1", "REQUEST_METHOD=GET"})
	require.NoError(t, app.Exec(context.Background(), inv, nil, &out))
	assert.Contains(t, out.String(), "Not a POST request.")
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	app := newApp(t, testConfig(), probe.WithMode(probe.ModeServe))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestNewAppErrors(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Mode = "daemon"
	_, err := probe.NewApp(probe.WithConfig(cfg))
	assert.ErrorIs(t, err, probe.ErrUnknownMode)

	cfg = testConfig()
	cfg.Page.Layout = "fancy"
	_, err = probe.NewApp(probe.WithConfig(cfg))
	assert.ErrorIs(t, err, diagpage.ErrUnknownLayout)

	_, err = probe.NewApp(probe.WithLogger(nil))
	assert.Error(t, err)
}
