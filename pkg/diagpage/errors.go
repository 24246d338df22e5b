package diagpage

import "errors"

var (
	ErrMalformedLength = errors.New("diagpage: content length is not an integer")
	ErrBodyRead        = errors.New("diagpage: failed to read request body")
	ErrUnknownLayout   = errors.New("diagpage: unknown layout")
	ErrUnknownCharset  = errors.New("diagpage: unsupported charset")
)
