package response

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/cgiprobe/core/handler"
)

// WithHeaders sets headers before resp runs.
func WithHeaders(resp handler.Response, headers map[string]string) handler.Response {
	if resp == nil || len(headers) == 0 {
		return resp
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		return resp(w, r)
	}
}

// WithCache sets public caching for maxAge, or forbids caching entirely
// when maxAge <= 0.
func WithCache(resp handler.Response, maxAge time.Duration) handler.Response {
	if resp == nil {
		return nil
	}
	if maxAge <= 0 {
		return WithHeaders(resp, map[string]string{
			"Cache-Control": "no-cache, no-store, must-revalidate",
			"Pragma":        "no-cache",
			"Expires":       "0",
		})
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
		w.Header().Set("Expires", time.Now().Add(maxAge).UTC().Format(http.TimeFormat))
		return resp(w, r)
	}
}
