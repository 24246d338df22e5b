// Command cgiprobe answers a CGI request with the diagnostic page, or serves
// the same page over HTTP.
//
//	cgiprobe                 # CGI when launched by a CGI host, HTTP otherwise
//	cgiprobe -mode serve -addr :9000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/cgiprobe/app/probe"
	"github.com/dmitrymomot/cgiprobe/core/config"
	"github.com/dmitrymomot/cgiprobe/core/logger"
	"github.com/dmitrymomot/cgiprobe/pkg/cgienv"
)

func main() {
	if err := run(); err != nil {
		// Failed CGI requests are logged where they happen.
		if !errors.Is(err, probe.ErrRequestFailed) {
			fmt.Fprintln(os.Stderr, "cgiprobe:", err)
		}
		os.Exit(1)
	}
}

func run() error {
	// Snapshot before config loading can add .env values to the environment.
	inv := cgienv.FromProcess()

	mode := flag.String("mode", "", "auto, cgi or serve (overrides CGIPROBE_MODE)")
	addr := flag.String("addr", "", "listen address in serve mode (overrides SERVER_ADDR)")
	flag.Parse()

	var cfg probe.Config
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	opts := []probe.AppOption{probe.WithConfig(cfg)}
	if *mode != "" {
		opts = append(opts, probe.WithMode(probe.Mode(*mode)))
	}

	app, err := probe.NewApp(opts...)
	if err != nil {
		return err
	}
	logger.SetAsDefault(app.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Exec(ctx, inv, os.Stdin, os.Stdout)
}
