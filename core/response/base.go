package response

import (
	"net/http"

	"github.com/dmitrymomot/cgiprobe/core/handler"
)

// Render executes resp against the context's writer and request.
// A failing response is reported as 500 Internal Server Error.
func Render(ctx handler.Context, resp handler.Response) {
	if err := resp(ctx.ResponseWriter(), ctx.Request()); err != nil {
		http.Error(ctx.ResponseWriter(), err.Error(), http.StatusInternalServerError)
	}
}

// String creates a text/plain response with 200 OK status.
func String(content string) handler.Response {
	return StringWithStatus(content, http.StatusOK)
}

// StringWithStatus creates a text/plain response with a custom status code.
func StringWithStatus(content string, status int) handler.Response {
	return BytesWithStatus([]byte(content), "text/plain; charset=utf-8", status)
}

// HTML creates a text/html response with 200 OK status.
func HTML(content string) handler.Response {
	return HTMLWithStatus(content, http.StatusOK)
}

// HTMLWithStatus creates a text/html response with a custom status code.
func HTMLWithStatus(content string, status int) handler.Response {
	return BytesWithStatus([]byte(content), "text/html; charset=utf-8", status)
}

// BytesWithStatus writes content with the given content type and status.
// A zero status means 200 OK. HEAD requests get headers only.
func BytesWithStatus(content []byte, contentType string, status int) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		code := status
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		if len(content) == 0 || r.Method == http.MethodHead {
			return nil
		}
		_, err := w.Write(content)
		return err
	}
}

// NoContent creates a 204 No Content response.
func NoContent() handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
}

// Handler serves the request with a plain http.Handler.
func Handler(h http.Handler) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}
}
