package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/cgiprobe/core/handler"
)

var (
	ErrNoContextFactory = errors.New("no context factory provided")
	ErrMethodNotAllowed error = &statusError{msg: "method not allowed", status: http.StatusMethodNotAllowed}
	ErrNotFound         error = &statusError{msg: "not found", status: http.StatusNotFound}
	ErrNilResponse      = errors.New("nil response")
	ErrNilHandler       = errors.New("nil handler")
	ErrInvalidMethod    = errors.New("invalid http method")
	ErrInvalidPattern   = errors.New("invalid route path pattern")
)

// statusCode is implemented by errors that carry an HTTP status.
type statusCode interface {
	StatusCode() int
}

// statusError is a routing failure with a fixed HTTP status.
type statusError struct {
	msg    string
	status int
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) StatusCode() int { return e.status }

func defaultErrorHandler[C handler.Context](ctx C, err error) {
	w := ctx.ResponseWriter()

	if ww, ok := w.(*responseWriter); ok && ww.Written() {
		return
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	http.Error(w, err.Error(), status)
}

// PanicError is passed to the error handler when a handler panics.
type PanicError interface {
	error
	Value() any
	Stack() []byte
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Value() any {
	return e.value
}

func (e *panicError) Stack() []byte {
	return e.stack
}

func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
