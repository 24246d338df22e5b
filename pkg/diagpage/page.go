package diagpage

import (
	"bytes"
	"io"
)

// Page is a rendered document. It is immutable; accessors return copies.
type Page struct {
	doc         []byte
	header      string
	contentType string
}

// Bytes returns a copy of the document.
func (p *Page) Bytes() []byte {
	return bytes.Clone(p.doc)
}

func (p *Page) String() string {
	return string(p.doc)
}

// Len returns the document size in bytes.
func (p *Page) Len() int {
	return len(p.doc)
}

// ContentType is the value for an HTTP Content-Type header.
func (p *Page) ContentType() string {
	return p.contentType
}

// HasHeader reports whether the layout prints its own CGI header block.
func (p *Page) HasHeader() bool {
	return p.header != ""
}

// Header returns the CGI header block including the terminating blank line,
// or "" when the host is expected to send the header.
func (p *Page) Header() string {
	return p.header
}

// WriteTo writes the document without the CGI header.
func (p *Page) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.doc)
	return int64(n), err
}

// WriteCGITo writes the CGI header block, if any, followed by the document.
func (p *Page) WriteCGITo(w io.Writer) (int64, error) {
	var total int64
	if p.header != "" {
		n, err := io.WriteString(w, p.header)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := p.WriteTo(w)
	return total + n, err
}
