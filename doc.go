// Package cgiprobe is a CGI diagnostic probe. It renders one HTML page that
// greets the caller, lists every environment entry it was invoked with and
// echoes the POST body back.
//
// Layout:
//
//	pkg/diagpage    page rendering (layouts, invocation, charset, escaping)
//	pkg/cgienv      invocations from the process environment or an *http.Request
//	app/probe       CGI responder and HTTP server wiring
//	cmd/cgiprobe    entry point
//	core/...        router, responses, server, config, logging, health, metrics
//	middleware      request ID, logging, body limit, request metrics
package cgiprobe
