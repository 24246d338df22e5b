// Package diagpage renders the CGI diagnostic page: a fixed HTML shell with a
// greeting, every environment entry as a key=value line, and the POST body
// echoed back.
//
//	r, err := diagpage.New(diagpage.WithLayout(diagpage.Personalized))
//	if err != nil {
//		return err
//	}
//	page, err := r.Render(ctx, diagpage.FromEnviron(os.Environ()), os.Stdin)
//	if err != nil {
//		return err
//	}
//	_, err = page.WriteCGITo(os.Stdout)
//
// Values are written verbatim unless escaping is enabled.
package diagpage

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

const (
	DefaultTitle = "Python CGI Test"
	DefaultHost  = "Python CGI"
)

// Renderer produces pages. It holds no per-request state and is safe for
// concurrent use.
type Renderer struct {
	layout  Layout
	escape  bool
	charset charset
	title   string
	host    string
}

// Option configures a Renderer.
type Option func(*Renderer) error

// WithLayout selects the layout. Default: Classic.
func WithLayout(l Layout) Option {
	return func(r *Renderer) error {
		r.layout = l
		return nil
	}
}

// WithEscapeHTML HTML-escapes environment entries, the greeting name and the
// POST body.
func WithEscapeHTML(on bool) Option {
	return func(r *Renderer) error {
		r.escape = on
		return nil
	}
}

// WithCharset sets the output encoding by WHATWG label.
func WithCharset(label string) Option {
	return func(r *Renderer) error {
		cs, err := lookupCharset(label)
		if err != nil {
			return err
		}
		r.charset = cs
		return nil
	}
}

// WithHostLabel replaces the "Python CGI" wording in the greeting.
func WithHostLabel(host string) Option {
	return func(r *Renderer) error {
		if host != "" {
			r.host = host
		}
		return nil
	}
}

// WithTitle replaces the document title.
func WithTitle(title string) Option {
	return func(r *Renderer) error {
		if title != "" {
			r.title = title
		}
		return nil
	}
}

// New creates a Renderer.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		layout:  Classic,
		charset: charset{name: utf8Name},
		title:   DefaultTitle,
		host:    DefaultHost,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewFromConfig creates a Renderer from cfg. Options override the config.
func NewFromConfig(cfg Config, opts ...Option) (*Renderer, error) {
	layout, err := cfg.ResolveLayout()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithLayout(layout),
		WithEscapeHTML(cfg.EscapeHTML),
		WithCharset(cfg.Charset),
	}
	return New(append(base, opts...)...)
}

// Layout returns the active layout.
func (r *Renderer) Layout() Layout {
	return r.layout
}

// Render builds the page for inv. body is read only for a POST with a
// positive declared length, and never beyond that length; it may be nil.
// A malformed length on a POST fails the whole render with ErrMalformedLength.
func (r *Renderer) Render(ctx context.Context, inv Invocation, body io.Reader) (*Page, error) {
	v := view{
		charset: r.charset.metaName(),
		title:   r.title,
		host:    r.host,
		greetBy: r.layout.Personalized,
		env:     inv.Env,
		escape:  r.escape,
		section: sectionNotPost,
	}
	if v.greetBy {
		v.name = QueryName(r.layout.Query(inv))
	}

	if r.layout.IsPost(inv) {
		n, err := r.layout.ContentLength(inv)
		if err != nil {
			return nil, err
		}
		v.section = sectionNoData
		if n > 0 {
			data, err := readBody(body, n)
			if err != nil {
				return nil, err
			}
			v.section = sectionData
			v.postData = data
		}
	}

	var buf bytes.Buffer
	if err := document(v).Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("diagpage: render: %w", err)
	}
	doc, err := r.charset.encode(buf.Bytes())
	if err != nil {
		return nil, err
	}

	page := &Page{
		doc:         doc,
		contentType: "text/html; charset=" + r.charset.name,
	}
	if r.layout.EmitContentType {
		page.header = r.cgiHeader()
	}
	return page, nil
}

// WriteCGI renders inv and writes the CGI response to w.
func (r *Renderer) WriteCGI(ctx context.Context, w io.Writer, inv Invocation, body io.Reader) error {
	page, err := r.Render(ctx, inv, body)
	if err != nil {
		return err
	}
	_, err = page.WriteCGITo(w)
	return err
}

// SelfCheck renders a fixed POST invocation end to end. Used as a readiness
// check.
func (r *Renderer) SelfCheck(ctx context.Context) error {
	inv := Invocation{}.
		With(r.layout.MethodKey, "POST").
		With(r.layout.LengthKey, "2").
		With("SELF_CHECK", "1")
	page, err := r.Render(ctx, inv, bytes.NewReader([]byte("ok")))
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(page.doc, []byte(doctype)) {
		return fmt.Errorf("diagpage: self check: document does not start with %s", doctype)
	}
	return nil
}

func (r *Renderer) cgiHeader() string {
	ct := "text/html"
	if !r.charset.isUTF8() {
		ct += "; charset=" + r.charset.name
	}
	return "Content-Type: " + ct + "\r\n\r\n"
}

// readBody reads at most n bytes. A short body yields what is there.
func readBody(body io.Reader, n int64) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, n))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}
	return data, nil
}
