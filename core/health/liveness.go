// Package health provides liveness and readiness handlers.
package health

import (
	"github.com/dmitrymomot/cgiprobe/core/handler"
	"github.com/dmitrymomot/cgiprobe/core/response"
)

// Liveness reports that the process is running. Always "ALIVE" with 200 OK.
//
//	r.Get("/health/live", health.Liveness[*router.Context])
func Liveness[C handler.Context](C) handler.Response {
	return response.String("ALIVE")
}
