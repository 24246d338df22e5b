// Package handler defines the typed handler, response and middleware
// signatures shared by the router, the middleware package and the probe app.
//
// A handler inspects the request through its context and returns a Response.
// The Response does the writing, so middleware can decorate it after the
// handler has decided what to send:
//
//	func page(ctx handler.Context) handler.Response {
//		return response.HTML("<!DOCTYPE html>...")
//	}
package handler

import "net/http"

// Response writes headers, status and body for a request.
// Errors are passed to the router's error handler.
type Response func(w http.ResponseWriter, r *http.Request) error

// HandlerFunc handles a request with a typed context.
type HandlerFunc[C Context] func(ctx C) Response

// ErrorHandler handles errors returned by a Response.
type ErrorHandler[C Context] func(ctx C, err error)

// Middleware wraps a HandlerFunc.
type Middleware[C Context] func(next HandlerFunc[C]) HandlerFunc[C]

// Chain applies middlewares so that the first one is the outermost.
func Chain[C Context](h HandlerFunc[C], middlewares ...Middleware[C]) HandlerFunc[C] {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
