package probe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/cgiprobe/pkg/cgienv"
	"github.com/dmitrymomot/cgiprobe/pkg/diagpage"
)

// Mode selects how the probe answers.
type Mode string

const (
	// ModeAuto picks ModeCGI inside a CGI environment, ModeServe otherwise.
	ModeAuto  Mode = "auto"
	ModeCGI   Mode = "cgi"
	ModeServe Mode = "serve"
)

var ErrUnknownMode = errors.New("probe: unknown mode")

// ParseMode accepts auto, cgi and serve, case-insensitively. Empty is auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeCGI, ModeServe:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Resolve replaces ModeAuto with the mode inv calls for.
func (m Mode) Resolve(inv diagpage.Invocation) Mode {
	if m != ModeAuto {
		return m
	}
	if cgienv.IsCGI(inv) {
		return ModeCGI
	}
	return ModeServe
}
