package response

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/cgiprobe/core/handler"
)

// Error returns a response that hands err to the router's error handler.
func Error(err error) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		return err
	}
}

type statusCode interface {
	StatusCode() int
}

// AsHTTPError converts any error to an HTTPError. Errors exposing a
// StatusCode are mapped to the matching predefined error; everything else
// becomes 500.
func AsHTTPError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	base, ok := httpErrorsByStatus[status]
	if !ok {
		base = ErrInternalServerError
	}
	return base.WithError(err)
}

// ErrorHandler writes errors as plain text with the mapped status.
func ErrorHandler[C handler.Context](ctx C, err error) {
	httpErr := AsHTTPError(err)
	Render(ctx, StringWithStatus(httpErr.Error(), httpErr.Status))
}
