package probe

import (
	"github.com/dmitrymomot/cgiprobe/core/server"
	"github.com/dmitrymomot/cgiprobe/pkg/diagpage"
)

// Config is everything the probe reads from the environment.
type Config struct {
	Server server.Config
	Page   diagpage.Config

	AppName  string `env:"APP_NAME" envDefault:"cgiprobe"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Mode           string `env:"CGIPROBE_MODE" envDefault:"auto"`
	MaxBodySize    int64  `env:"CGIPROBE_MAX_BODY" envDefault:"4194304"`
	MetricsEnabled bool   `env:"CGIPROBE_METRICS" envDefault:"true"`
	// ScriptName is reported as SCRIPT_NAME in serve mode; the rest of the
	// path becomes PATH_INFO.
	ScriptName string `env:"CGIPROBE_SCRIPT_NAME"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		Server:         server.DefaultConfig(),
		Page:           diagpage.Config{Layout: diagpage.Classic.Name, ContentType: "auto", Charset: "utf-8"},
		AppName:        "cgiprobe",
		Env:            "development",
		LogLevel:       "info",
		Mode:           string(ModeAuto),
		MaxBodySize:    4 << 20,
		MetricsEnabled: true,
	}
}
