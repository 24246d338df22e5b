// Package cgienv builds diagpage invocations the way a CGI host would: from
// the process environment of a CGI child, or from an *http.Request when the
// probe serves HTTP itself.
package cgienv

import (
	"errors"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/cgiprobe/pkg/diagpage"
)

// Style selects the variable naming scheme.
type Style int

const (
	// StyleRFC3875 uses the upper-case meta-variables of RFC 3875 plus
	// HTTP_* for request headers.
	StyleRFC3875 Style = iota
	// StyleLowercase passes the keys the personalized layout reads
	// (request_method, query_string, path, protocol) plus every header under
	// its lower-case name.
	StyleLowercase
)

const (
	GatewayInterface      = "CGI/1.1"
	DefaultServerSoftware = "cgiprobe"
)

var (
	ErrUnknownScheme = errors.New("cgienv: cannot derive port from unknown scheme")
	ErrBadHost       = errors.New("cgienv: malformed host")
)

// FromProcess snapshots the process environment. Take the snapshot before
// anything (such as .env loading) modifies the environment.
func FromProcess() diagpage.Invocation {
	return diagpage.FromEnviron(os.Environ())
}

// IsCGI reports whether inv looks like a CGI child environment.
func IsCGI(inv diagpage.Invocation) bool {
	if _, ok := inv.Lookup("GATEWAY_INTERFACE"); ok {
		return true
	}
	_, ok := inv.Lookup("request_method")
	return ok
}

// StyleForLayout returns the style whose names l reads.
func StyleForLayout(l diagpage.Layout) Style {
	if l.MethodKey != "" && l.MethodKey == strings.ToLower(l.MethodKey) {
		return StyleLowercase
	}
	return StyleRFC3875
}

type options struct {
	style          Style
	scriptName     string
	serverSoftware string
	extra          []diagpage.Entry
}

// Option configures FromRequest.
type Option func(*options)

func WithStyle(s Style) Option {
	return func(o *options) { o.style = s }
}

// WithScriptName sets SCRIPT_NAME; the rest of the path becomes PATH_INFO.
func WithScriptName(name string) Option {
	return func(o *options) { o.scriptName = name }
}

func WithServerSoftware(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serverSoftware = name
		}
	}
}

// WithExtra appends a variable after the generated ones.
func WithExtra(key, value string) Option {
	return func(o *options) { o.extra = append(o.extra, diagpage.Entry{Key: key, Value: value}) }
}

// FromRequest builds the variables a CGI host would pass for r.
func FromRequest(r *http.Request, opts ...Option) diagpage.Invocation {
	o := &options{serverSoftware: DefaultServerSoftware}
	for _, opt := range opts {
		opt(o)
	}

	var inv diagpage.Invocation
	if o.style == StyleLowercase {
		inv = lowercase(r)
	} else {
		inv = rfc3875(r, o)
	}
	inv.Env = append(inv.Env, o.extra...)
	return inv
}

func rfc3875(r *http.Request, o *options) diagpage.Invocation {
	env := make([]diagpage.Entry, 0, 16+len(r.Header))
	add := func(k, v string) { env = append(env, diagpage.Entry{Key: k, Value: v}) }

	scriptName, pathInfo := splitScript(r.URL.Path, o.scriptName)
	remoteHost, remotePort := splitRemote(r.RemoteAddr)

	add("GATEWAY_INTERFACE", GatewayInterface)
	add("SERVER_SOFTWARE", o.serverSoftware)
	add("SERVER_NAME", ServerName(r))
	if port, err := ServerPort(r); err == nil {
		add("SERVER_PORT", strconv.Itoa(port))
	}
	add("SERVER_PROTOCOL", r.Proto)
	add("REQUEST_METHOD", r.Method)
	add("REQUEST_URI", r.URL.RequestURI())
	add("SCRIPT_NAME", scriptName)
	add("PATH_INFO", pathInfo)
	add("QUERY_STRING", r.URL.RawQuery)
	add("REMOTE_ADDR", remoteHost)
	if remotePort != "" {
		add("REMOTE_PORT", remotePort)
	}
	add("CONTENT_LENGTH", contentLength(r))
	if ct := r.Header.Get("Content-Type"); ct != "" {
		add("CONTENT_TYPE", ct)
	}
	if r.TLS != nil {
		add("HTTPS", "on")
	}

	for _, name := range sortedHeaders(r.Header) {
		if name == "Content-Type" || name == "Content-Length" || name == "Proxy" {
			continue
		}
		key := "HTTP_" + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
		add(key, strings.Join(r.Header.Values(name), ", "))
	}
	if r.Host != "" && r.Header.Get("Host") == "" {
		add("HTTP_HOST", r.Host)
	}

	return diagpage.Invocation{Env: env}
}

func lowercase(r *http.Request) diagpage.Invocation {
	env := make([]diagpage.Entry, 0, 4+len(r.Header))
	add := func(k, v string) { env = append(env, diagpage.Entry{Key: k, Value: v}) }

	add("request_method", r.Method)
	add("query_string", r.URL.RawQuery)
	add("path", r.URL.Path)
	add("protocol", r.Proto)

	seen := map[string]bool{}
	for _, name := range sortedHeaders(r.Header) {
		key := strings.ToLower(name)
		seen[key] = true
		add(key, strings.Join(r.Header.Values(name), ", "))
	}
	// Go moves these out of r.Header.
	if !seen["host"] && r.Host != "" {
		add("host", r.Host)
	}
	if !seen["content-length"] && r.ContentLength > 0 {
		add("content-length", strconv.FormatInt(r.ContentLength, 10))
	}

	return diagpage.Invocation{Env: env}
}

// ServerName is the request host without port, lower-cased.
func ServerName(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

// ServerPort derives the port from the Host header, falling back to the
// scheme default.
func ServerPort(r *http.Request) (int, error) {
	if _, port, err := net.SplitHostPort(r.Host); err == nil {
		n, err := strconv.Atoi(port)
		if err != nil {
			return 0, ErrBadHost
		}
		return n, nil
	}
	if strings.Count(r.Host, ":") > 1 && !strings.HasPrefix(r.Host, "[") {
		return 0, ErrBadHost
	}

	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	switch scheme {
	case "http":
		return 80, nil
	case "https":
		return 443, nil
	}
	return 0, ErrUnknownScheme
}

func contentLength(r *http.Request) string {
	if r.ContentLength > 0 {
		return strconv.FormatInt(r.ContentLength, 10)
	}
	return r.Header.Get("Content-Length")
}

func splitScript(path, scriptName string) (string, string) {
	if scriptName == "" {
		return "", path
	}
	if path == scriptName {
		return scriptName, ""
	}
	if rest, ok := strings.CutPrefix(path, strings.TrimSuffix(scriptName, "/")+"/"); ok {
		return scriptName, "/" + rest
	}
	return scriptName, path
}

func splitRemote(addr string) (string, string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, ""
	}
	return host, port
}

func sortedHeaders(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
