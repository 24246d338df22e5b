package router

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/cgiprobe/core/handler"
)

// mux is the private implementation of Router.
type mux[C handler.Context] struct {
	tree         *chi.Mux
	middlewares  []handler.Middleware[C]
	errorHandler handler.ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request, map[string]string) C
	logger       *slog.Logger

	mu     sync.RWMutex
	routes []Route
}

func newMux[C handler.Context](opts ...Option[C]) *mux[C] {
	m := &mux[C]{
		tree:         chi.NewMux(),
		errorHandler: defaultErrorHandler[C],
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.newContext == nil {
		m.newContext = func(w http.ResponseWriter, r *http.Request, params map[string]string) C {
			// Only the default *Context works without a factory.
			var zero C
			if _, ok := any(zero).(*Context); ok {
				return any(newContext(w, r, params)).(C)
			}
			panic(ErrNoContextFactory)
		}
	}

	// Unmatched requests still run through the middleware chain.
	m.tree.NotFound(m.endpoint(failWith[C](ErrNotFound)))
	m.tree.MethodNotAllowed(m.endpoint(failWith[C](ErrMethodNotAllowed)))

	return m
}

// ServeHTTP implements http.Handler.
func (m *mux[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.tree.ServeHTTP(w, r)
}

func (m *mux[C]) Get(pattern string, h handler.HandlerFunc[C]) {
	m.Method(pattern, h, http.MethodGet)
}

func (m *mux[C]) Post(pattern string, h handler.HandlerFunc[C]) {
	m.Method(pattern, h, http.MethodPost)
}

func (m *mux[C]) Handle(pattern string, h handler.HandlerFunc[C]) {
	m.register(pattern, h)
	m.tree.Handle(pattern, m.endpoint(h))
	m.addRoute("*", pattern)
}

func (m *mux[C]) Method(pattern string, h handler.HandlerFunc[C], methods ...string) {
	m.register(pattern, h)
	if len(methods) == 0 {
		panic(ErrInvalidMethod)
	}
	ep := m.endpoint(h)
	for _, method := range methods {
		method = strings.ToUpper(method)
		if !validMethod(method) {
			panic(ErrInvalidMethod)
		}
		m.tree.Method(method, pattern, ep)
		m.addRoute(method, pattern)
	}
}

// Use appends middlewares. They apply to every route, including routes
// registered before the call.
func (m *mux[C]) Use(middlewares ...handler.Middleware[C]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.middlewares = append(m.middlewares, middlewares...)
}

func (m *mux[C]) Routes() []Route {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Route, len(m.routes))
	copy(out, m.routes)
	return out
}

func (m *mux[C]) register(pattern string, h handler.HandlerFunc[C]) {
	if h == nil {
		panic(ErrNilHandler)
	}
	if pattern == "" || pattern[0] != '/' {
		panic(ErrInvalidPattern)
	}
}

func (m *mux[C]) addRoute(method, pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, Route{Method: method, Pattern: pattern})
}

// endpoint adapts a typed handler to http.HandlerFunc.
func (m *mux[C]) endpoint(fn handler.HandlerFunc[C]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := newResponseWriter(w)
		ctx := m.newContext(ww, r, urlParams(r))

		defer func() {
			if p := recover(); p != nil {
				panicErr := &panicError{value: p, stack: debug.Stack()}
				if ww.Written() {
					m.logger.Error("panic after response written",
						"value", panicErr.value,
						"stack", string(panicErr.stack),
						"path", r.URL.Path,
						"method", r.Method,
						"status", ww.Status(),
					)
					return
				}
				m.errorHandler(ctx, panicErr)
			}
		}()

		m.mu.RLock()
		h := handler.Chain(fn, m.middlewares...)
		m.mu.RUnlock()

		resp := h(ctx)
		if resp == nil {
			m.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp(ww, ctx.Request()); err != nil {
			m.errorHandler(ctx, err)
		}
	}
}

func failWith[C handler.Context](err error) handler.HandlerFunc[C] {
	return func(C) handler.Response {
		return func(http.ResponseWriter, *http.Request) error { return err }
	}
}

func urlParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.URLParams.Keys) == 0 {
		return nil
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if i < len(rctx.URLParams.Values) {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return params
}

func validMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodConnect,
		http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
