package logger

import (
	"log/slog"
	"time"
)

// Helpers return an empty Attr for empty input so callers can pass them
// unconditionally: log.Info("msg", logger.Error(err)).

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an "error" attribute. Returns empty Attr for nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func Query(query string) slog.Attr {
	if query == "" {
		return slog.Attr{}
	}
	return slog.String("query", query)
}

func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

func RemoteAddr(addr string) slog.Attr {
	return slog.String("remote_addr", addr)
}

func BytesIn(n int64) slog.Attr {
	return slog.Int64("bytes_in", n)
}

func BytesOut(n int64) slog.Attr {
	return slog.Int64("bytes_out", n)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Mode records how the probe was invoked (cgi or serve).
func Mode(mode string) slog.Attr {
	return slog.String("mode", mode)
}

// Layout records the page layout in use.
func Layout(name string) slog.Attr {
	return slog.String("layout", name)
}

func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

func Version(v string) slog.Attr {
	return slog.String("version", v)
}
