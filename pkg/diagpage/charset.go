package diagpage

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const utf8Name = "utf-8"

// charset transcodes the rendered UTF-8 document into the output encoding.
type charset struct {
	name string
	enc  encoding.Encoding
}

// lookupCharset resolves a WHATWG encoding label. Only ASCII-compatible
// encodings are accepted so the document still starts with <!DOCTYPE html>.
func lookupCharset(label string) (charset, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = utf8Name
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return charset{}, fmt.Errorf("%w: %q", ErrUnknownCharset, label)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return charset{}, fmt.Errorf("%w: %q", ErrUnknownCharset, label)
	}
	if name == utf8Name {
		return charset{name: utf8Name}, nil
	}

	probe, err := enc.NewEncoder().Bytes([]byte(doctype))
	if err != nil || !bytes.Equal(probe, []byte(doctype)) {
		return charset{}, fmt.Errorf("%w: %q is not ASCII compatible", ErrUnknownCharset, label)
	}
	return charset{name: name, enc: enc}, nil
}

// isUTF8 reports whether output passes through untouched.
func (c charset) isUTF8() bool {
	return c.enc == nil
}

// metaName is the value written into <meta charset>.
func (c charset) metaName() string {
	return strings.ToUpper(c.name)
}

// encode converts a UTF-8 document. Characters the target encoding cannot
// represent become numeric character references.
func (c charset) encode(doc []byte) ([]byte, error) {
	if c.isUTF8() {
		return doc, nil
	}
	out, err := encoding.HTMLEscapeUnsupported(c.enc.NewEncoder()).Bytes(doc)
	if err != nil {
		return nil, fmt.Errorf("diagpage: encode %s: %w", c.name, err)
	}
	return out, nil
}
