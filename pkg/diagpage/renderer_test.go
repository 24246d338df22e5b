package diagpage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/cgiprobe/pkg/diagpage"
)

// countingReader records how many bytes were pulled from it.
type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func render(t *testing.T, r *diagpage.Renderer, inv diagpage.Invocation, body io.Reader) string {
	t.Helper()
	page, err := r.Render(context.Background(), inv, body)
	require.NoError(t, err)
	return page.String()
}

func mustRenderer(t *testing.T, opts ...diagpage.Option) *diagpage.Renderer {
	t.Helper()
	r, err := diagpage.New(opts...)
	require.NoError(t, err)
	return r
}

func TestRenderNonPost(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t)
	for _, method := range []string{"GET", "HEAD", "PUT", "post", ""} {
		t.Run("method "+method, func(t *testing.T) {
			t.Parallel()
			body := &countingReader{r: strings.NewReader("ignored")}
			inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": method, "CONTENT_LENGTH": "7"})

			out := render(t, r, inv, body)
			assert.Contains(t, out, "<h2>Not a POST request.</h2>")
			assert.NotContains(t, out, "POST Data")
			assert.Zero(t, body.read)
		})
	}
}

func TestRenderPostWithoutData(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t)
	for _, length := range []string{"0", "", " 0 "} {
		body := &countingReader{r: strings.NewReader("should stay unread")}
		inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": length})

		out := render(t, r, inv, body)
		assert.Contains(t, out, "<h2>No POST Data.</h2>")
		assert.NotContains(t, out, "<h2>POST Data:</h2>")
		assert.Zero(t, body.read, "length %q", length)
	}
}

func TestRenderPostData(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t)

	t.Run("reads exactly the declared length", func(t *testing.T) {
		t.Parallel()
		body := &countingReader{r: strings.NewReader("name=Alice&extra=trailing")}
		inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": "10"})

		out := render(t, r, inv, body)
		assert.Contains(t, out, "<h2>POST Data:</h2>\n<pre>name=Alice</pre>\n")
		assert.Equal(t, 10, body.read)
	})

	t.Run("body is emitted verbatim", func(t *testing.T) {
		t.Parallel()
		payload := "<b>bold</b> & \"quoted\""
		inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": "22"})

		out := render(t, r, inv, strings.NewReader(payload))
		assert.Contains(t, out, "<pre>"+payload+"</pre>")
	})

	t.Run("short body yields what is there", func(t *testing.T) {
		t.Parallel()
		inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": "100"})

		out := render(t, r, inv, strings.NewReader("abc"))
		assert.Contains(t, out, "<pre>abc</pre>")
	})

	t.Run("nil body", func(t *testing.T) {
		t.Parallel()
		inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": "5"})

		out := render(t, r, inv, nil)
		assert.Contains(t, out, "<h2>POST Data:</h2>\n<pre></pre>")
	})

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()
		inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": "5"})

		_, err := r.Render(context.Background(), inv, failingReader{})
		assert.ErrorIs(t, err, diagpage.ErrBodyRead)
	})
}

func TestRenderMalformedLength(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t)
	for _, length := range []string{"abc", "1.5", "0x10", "5 bytes"} {
		inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": length})
		page, err := r.Render(context.Background(), inv, strings.NewReader("data"))
		assert.ErrorIs(t, err, diagpage.ErrMalformedLength, "length %q", length)
		assert.Nil(t, page)
	}

	// The length is only consulted for POST.
	inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "GET", "CONTENT_LENGTH": "abc"})
	out := render(t, r, inv, nil)
	assert.Contains(t, out, "Not a POST request.")
}

func TestRenderNegativeLength(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t)
	for _, length := range []string{"-1", "-5"} {
		inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": length})
		body := &countingReader{r: strings.NewReader("data")}
		page, err := r.Render(context.Background(), inv, body)
		require.NoError(t, err, "length %q", length)
		assert.Contains(t, page.String(), "<h2>No POST Data.</h2>")
		assert.NotContains(t, page.String(), "POST Data:")
		assert.Zero(t, body.read, "length %q", length)
	}
}

func TestRenderEnvironmentOrder(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t)
	inv := diagpage.Invocation{Env: []diagpage.Entry{
		{Key: "FOO", Value: "bar"},
		{Key: "BAZ", Value: "qux"},
		{Key: "HTML", Value: "<script>alert(1)</script>"},
	}}

	out := render(t, r, inv, nil)
	assert.Contains(t, out, "<pre>FOO=bar\nBAZ=qux\nHTML=<script>alert(1)</script>\n</pre>")
	assert.Less(t, strings.Index(out, "FOO=bar"), strings.Index(out, "BAZ=qux"))
}

func TestRenderEmptyEnvironment(t *testing.T) {
	t.Parallel()

	out := render(t, mustRenderer(t), diagpage.Invocation{}, nil)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<pre></pre>")
	assert.Contains(t, out, "Not a POST request.")
}

func TestRenderPersonalizedGreeting(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, diagpage.WithLayout(diagpage.Personalized))

	tests := []struct {
		query string
		want  string
	}{
		{query: "name=Alice", want: "<h1>Hello Alice from Python CGI!</h1>"},
		{query: "", want: "<h1>Hello Guest from Python CGI!</h1>"},
		{query: "name=", want: "<h1>Hello Guest from Python CGI!</h1>"},
		{query: "other=1", want: "<h1>Hello Guest from Python CGI!</h1>"},
		{query: "name=Jos%C3%A9+Silva&name=Bob", want: "<h1>Hello José Silva from Python CGI!</h1>"},
		{query: "name=Tom;Jerry", want: "<h1>Hello Tom;Jerry from Python CGI!</h1>"},
		{query: "name=%zz", want: "<h1>Hello %zz from Python CGI!</h1>"},
		{query: "name=Al%ice&x=1", want: "<h1>Hello Al%ice from Python CGI!</h1>"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			inv := diagpage.FromMap(map[string]string{"request_method": "GET", "query_string": tt.query})
			assert.Contains(t, render(t, r, inv, nil), tt.want)
		})
	}
}

func TestRenderPersonalizedKeys(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, diagpage.WithLayout(diagpage.Personalized))

	inv := diagpage.FromMap(map[string]string{
		"request_method": "POST",
		"content-length": "5",
		"REQUEST_METHOD": "GET",
	})
	page, err := r.Render(context.Background(), inv, strings.NewReader("hello world"))
	require.NoError(t, err)

	assert.Contains(t, page.String(), "<pre>hello</pre>")
	assert.False(t, page.HasHeader())
	assert.Empty(t, page.Header())

	// The upper-case names mean nothing to this layout.
	classicInv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": "5"})
	assert.Contains(t, render(t, r, classicInv, strings.NewReader("hello")), "Not a POST request.")
}

func TestRenderClassicIgnoresQuery(t *testing.T) {
	t.Parallel()

	inv := diagpage.FromMap(map[string]string{"QUERY_STRING": "name=Alice", "query_string": "name=Alice"})
	out := render(t, mustRenderer(t), inv, nil)
	assert.Contains(t, out, "<h1>Hello from Python CGI!</h1>")
}

func TestRenderEscapeHTML(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, diagpage.WithLayout(diagpage.Personalized), diagpage.WithEscapeHTML(true))
	inv := diagpage.FromMap(map[string]string{
		"request_method": "POST",
		"content-length": "13",
		"query_string":   "name=%3Cb%3E",
		"X":              "<i>",
	})

	out := render(t, r, inv, strings.NewReader("<script>x</sc"))
	assert.Contains(t, out, "<h1>Hello &lt;b&gt; from Python CGI!</h1>")
	assert.Contains(t, out, "X=&lt;i&gt;\n")
	assert.Contains(t, out, "<pre>&lt;script&gt;x&lt;/sc</pre>")
	assert.NotContains(t, out, "<script>")
}

func TestRenderIdempotent(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t)
	inv := diagpage.FromEnviron([]string{"REQUEST_METHOD=GET", "PATH=/usr/bin", "EMPTY="})

	first, err := r.Render(context.Background(), inv, nil)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), inv, nil)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first.Bytes(), second.Bytes()))
}

func TestRenderDoesNotMutateInvocation(t *testing.T) {
	t.Parallel()

	inv := diagpage.FromEnviron([]string{"REQUEST_METHOD=POST", "CONTENT_LENGTH=2", "A=1"})
	before := inv.Environ()

	_ = render(t, mustRenderer(t), inv, strings.NewReader("ok"))
	assert.Equal(t, before, inv.Environ())
}

func TestRenderCharset(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, diagpage.WithCharset("iso-8859-1"))
	inv := diagpage.FromMap(map[string]string{"CITY": "Bogotá", "GLYPH": "☃"})

	page, err := r.Render(context.Background(), inv, nil)
	require.NoError(t, err)

	doc := page.Bytes()
	assert.True(t, bytes.HasPrefix(doc, []byte("<!DOCTYPE html>")))
	assert.Contains(t, string(doc), `<meta charset="WINDOWS-1252">`)
	assert.True(t, bytes.Contains(doc, []byte("CITY=Bogot\xe1\n")))
	assert.True(t, bytes.Contains(doc, []byte("GLYPH=&#9731;\n")))
	assert.Equal(t, "Content-Type: text/html; charset=windows-1252\r\n\r\n", page.Header())
	assert.Equal(t, "text/html; charset=windows-1252", page.ContentType())

	_, err = diagpage.New(diagpage.WithCharset("not-a-charset"))
	assert.ErrorIs(t, err, diagpage.ErrUnknownCharset)
}

func TestWriteCGI(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := mustRenderer(t)
	inv := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "GET"})

	require.NoError(t, r.WriteCGI(context.Background(), &buf, inv, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "Content-Type: text/html\r\n\r\n<!DOCTYPE html>\n"))

	buf.Reset()
	p := mustRenderer(t, diagpage.WithLayout(diagpage.Personalized))
	require.NoError(t, p.WriteCGI(context.Background(), &buf, inv, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "<!DOCTYPE html>"))

	bad := diagpage.FromMap(map[string]string{"REQUEST_METHOD": "POST", "CONTENT_LENGTH": "x"})
	buf.Reset()
	assert.ErrorIs(t, r.WriteCGI(context.Background(), &buf, bad, nil), diagpage.ErrMalformedLength)
	assert.Zero(t, buf.Len())
}

func TestRendererOptions(t *testing.T) {
	t.Parallel()

	r := mustRenderer(t, diagpage.WithHostLabel("Go CGI"), diagpage.WithTitle("Probe"))
	out := render(t, r, diagpage.Invocation{}, nil)
	assert.Contains(t, out, "<title>Probe</title>")
	assert.Contains(t, out, "<h1>Hello from Go CGI!</h1>")
}

func TestSelfCheck(t *testing.T) {
	t.Parallel()

	for _, l := range []diagpage.Layout{diagpage.Classic, diagpage.Personalized} {
		r := mustRenderer(t, diagpage.WithLayout(l), diagpage.WithCharset("koi8-r"))
		assert.NoError(t, r.SelfCheck(context.Background()), l.Name)
	}
}
