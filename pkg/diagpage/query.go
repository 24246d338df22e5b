package diagpage

import "strings"

// DefaultName is used when the query carries no usable name.
const DefaultName = "Guest"

// QueryName returns the first non-empty "name" parameter of a URL-encoded
// query, or DefaultName. Pairs are split on "&" only, so ";" stays part of a
// value, and invalid percent escapes are kept literally.
func QueryName(rawQuery string) string {
	for pair := range strings.SplitSeq(rawQuery, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}
		if unescapeQuery(key) != "name" {
			continue
		}
		return unescapeQuery(value)
	}
	return DefaultName
}

// unescapeQuery decodes "+" and %XX sequences. A "%" not followed by two hex
// digits is copied as is; invalid UTF-8 becomes U+FFFD.
func unescapeQuery(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if hi, ok := unhex(s[i+1]); ok {
				if lo, ok := unhex(s[i+2]); ok {
					b.WriteByte(hi<<4 | lo)
					i += 2
					continue
				}
			}
		}
		b.WriteByte(s[i])
	}
	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
