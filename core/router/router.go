// Package router provides a generic HTTP router for handler.HandlerFunc values.
// Path matching is delegated to chi; the router adds typed contexts, response
// rendering, middleware chaining, panic recovery and error handling.
//
//	r := router.New[*router.Context]()
//	r.Use(middleware.RequestID[*router.Context]())
//	r.Get("/health/live", health.Liveness[*router.Context])
//	r.Handle("/*", page)
//	http.ListenAndServe(":8080", r)
package router

import (
	"net/http"

	"github.com/dmitrymomot/cgiprobe/core/handler"
)

// Router is the routing interface used by the probe application.
type Router[C handler.Context] interface {
	http.Handler
	Routes

	Get(pattern string, h handler.HandlerFunc[C])
	Post(pattern string, h handler.HandlerFunc[C])

	// Handle registers h for every HTTP method.
	Handle(pattern string, h handler.HandlerFunc[C])
	// Method registers h for the listed methods only.
	Method(pattern string, h handler.HandlerFunc[C], methods ...string)

	Use(middlewares ...handler.Middleware[C])
}

// Routes provides route introspection.
type Routes interface {
	Routes() []Route
}

// Route describes a registered route. Method is "*" for Handle routes.
type Route struct {
	Method  string
	Pattern string
}

// New creates a router with the given options.
func New[C handler.Context](opts ...Option[C]) Router[C] {
	return newMux[C](opts...)
}
