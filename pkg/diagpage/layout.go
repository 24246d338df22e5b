package diagpage

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// Layout selects which environment keys drive the page and how the greeting
// and CGI header look.
type Layout struct {
	Name string

	MethodKey string
	LengthKey string
	// QueryKey holds the URL-encoded query the greeting name is read from.
	// Only used when Personalized is set.
	QueryKey string

	Personalized    bool
	EmitContentType bool
}

var (
	// Classic reads the RFC 3875 names and prints its own Content-Type header.
	Classic = Layout{
		Name:            "classic",
		MethodKey:       "REQUEST_METHOD",
		LengthKey:       "CONTENT_LENGTH",
		EmitContentType: true,
	}

	// Personalized reads the lower-case names some hosts pass, greets the
	// visitor by the query's name parameter and leaves the header to the host.
	Personalized = Layout{
		Name:         "personalized",
		MethodKey:    "request_method",
		LengthKey:    "content-length",
		QueryKey:     "query_string",
		Personalized: true,
	}
)

// LayoutByName returns the preset with the given name, case-insensitively.
func LayoutByName(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Classic.Name:
		return Classic, nil
	case Personalized.Name:
		return Personalized, nil
	}
	return Layout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
}

// Method returns the request method recorded in inv.
func (l Layout) Method(inv Invocation) string {
	return inv.Get(l.MethodKey)
}

// IsPost reports whether inv records a POST. The comparison is exact.
func (l Layout) IsPost(inv Invocation) bool {
	return l.Method(inv) == http.MethodPost
}

// ContentLength parses the length recorded in inv. A missing key is 0.
func (l Layout) ContentLength(inv Invocation) (int64, error) {
	return ParseContentLength(inv.Get(l.LengthKey))
}

// Query returns the raw query string recorded in inv.
func (l Layout) Query(inv Invocation) string {
	if l.QueryKey == "" {
		return ""
	}
	return inv.Get(l.QueryKey)
}

// ParseContentLength parses a declared body length. Surrounding whitespace is
// ignored and an empty value is 0. A negative integer means no body and yields
// 0; a value too large for int64 saturates. Anything that is not a base-10
// integer yields ErrMalformedLength.
func ParseContentLength(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		if strings.HasPrefix(raw, "-") {
			return 0, nil
		}
		return math.MaxInt64, nil
	case err != nil:
		return 0, fmt.Errorf("%w: %q", ErrMalformedLength, raw)
	case n < 0:
		return 0, nil
	}
	return n, nil
}
