package diagpage

import (
	"fmt"
	"strings"
)

// Config is the environment-driven renderer configuration.
type Config struct {
	Layout string `env:"PAGE_LAYOUT" envDefault:"classic"`

	// Key overrides; empty keeps the layout preset.
	MethodKey string `env:"PAGE_METHOD_KEY"`
	LengthKey string `env:"PAGE_LENGTH_KEY"`
	QueryKey  string `env:"PAGE_QUERY_KEY"`

	// ContentType is auto (layout preset), on or off.
	ContentType string `env:"PAGE_CONTENT_TYPE" envDefault:"auto"`

	EscapeHTML bool   `env:"PAGE_ESCAPE_HTML" envDefault:"false"`
	Charset    string `env:"PAGE_CHARSET" envDefault:"utf-8"`
}

// ResolveLayout applies the overrides to the named preset.
func (c Config) ResolveLayout() (Layout, error) {
	l, err := LayoutByName(c.Layout)
	if err != nil {
		return Layout{}, err
	}
	if c.MethodKey != "" {
		l.MethodKey = c.MethodKey
	}
	if c.LengthKey != "" {
		l.LengthKey = c.LengthKey
	}
	if c.QueryKey != "" {
		l.QueryKey = c.QueryKey
	}

	switch strings.ToLower(strings.TrimSpace(c.ContentType)) {
	case "", "auto":
	case "on", "true", "yes":
		l.EmitContentType = true
	case "off", "false", "no":
		l.EmitContentType = false
	default:
		return Layout{}, fmt.Errorf("%w: content type mode %q", ErrUnknownLayout, c.ContentType)
	}
	return l, nil
}
