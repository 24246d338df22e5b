package router

import (
	"context"
	"net/http"
	"time"
)

// Context is the default handler.Context implementation. It delegates to the
// request's context and keeps values set by middleware on the request.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	params map[string]string
}

func newContext(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	return &Context{w: w, r: r, params: params}
}

func (c *Context) Deadline() (deadline time.Time, ok bool) {
	return c.r.Context().Deadline()
}

func (c *Context) Done() <-chan struct{} {
	return c.r.Context().Done()
}

func (c *Context) Err() error {
	return c.r.Context().Err()
}

func (c *Context) Value(key any) any {
	return c.r.Context().Value(key)
}

// SetValue stores a value in the request's context.
func (c *Context) SetValue(key, val any) {
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}

// Request returns the request, including values stored with SetValue.
func (c *Context) Request() *http.Request {
	return c.r
}

func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Param returns a URL parameter, or "" when absent.
// The catch-all segment of a "/*" pattern is available under "*".
func (c *Context) Param(key string) string {
	if c.params == nil {
		return ""
	}
	return c.params[key]
}
