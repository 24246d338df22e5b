package diagpage

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const doctype = "<!DOCTYPE html>"

const styles = `        body {
            font-family: Arial, sans-serif;
            background: #f2f2f2;
            color: #333;
            margin: 40px;
        }
        h1 {
            color: #0066cc;
        }
        h2 {
            color: #444;
            border-bottom: 2px solid #ddd;
            padding-bottom: 5px;
        }
        pre {
            background-color: #fff;
            border: 1px solid #ccc;
            padding: 15px;
            border-radius: 5px;
            overflow-x: auto;
        }
        .container {
            max-width: 800px;
            margin: auto;
            background: #ffffff;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
        }
`

type postSection int

const (
	sectionNotPost postSection = iota
	sectionNoData
	sectionData
)

// view is everything a page render needs. Text fields are raw; escaping is
// applied while writing when escape is set.
type view struct {
	charset  string
	title    string
	host     string
	name     string
	greetBy  bool
	env      []Entry
	section  postSection
	postData []byte
	escape   bool
}

func (v view) text(s string) string {
	if v.escape {
		return templ.EscapeString(s)
	}
	return s
}

// document is the full page: shell, greeting, environment dump, POST section.
func document(v view) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := doctype + "\n" +
			"<html lang=\"it\">\n" +
			"<head>\n" +
			"    <meta charset=\"" + v.charset + "\">\n" +
			"    <title>" + v.title + "</title>\n" +
			"    <style>\n" + styles + "    </style>\n" +
			"</head>\n" +
			"<body>\n" +
			"    <div class=\"container\">\n"
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		for _, c := range []templ.Component{greeting(v), environment(v), post(v)} {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "    </div>\n</body>\n</html>\n")
		return err
	})
}

func greeting(v view) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h1 := "Hello from " + v.host + "!"
		if v.greetBy {
			h1 = "Hello " + v.text(v.name) + " from " + v.host + "!"
		}
		_, err := io.WriteString(w, "        <h1>"+h1+"</h1>\n")
		return err
	})
}

// environment writes one key=value line per entry inside a single <pre>.
func environment(v view) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "        <h2>Environment Variables:</h2>\n        <pre>"); err != nil {
			return err
		}
		for _, e := range v.env {
			if _, err := io.WriteString(w, v.text(e.Key)+"="+v.text(e.Value)+"\n"); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</pre>\n")
		return err
	})
}

func post(v view) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var out string
		switch v.section {
		case sectionData:
			out = "<h2>POST Data:</h2>\n<pre>" + v.text(string(v.postData)) + "</pre>\n"
		case sectionNoData:
			out = "<h2>No POST Data.</h2>\n"
		default:
			out = "<h2>Not a POST request.</h2>\n"
		}
		_, err := io.WriteString(w, out)
		return err
	})
}
