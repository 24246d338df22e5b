package handler

import (
	"context"
	"net/http"
)

// Context is the per-request context handed to every HandlerFunc.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	Param(key string) string
	SetValue(key, val any)
}
