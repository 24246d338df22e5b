// Package config loads typed configuration from environment variables.
//
// A .env file in the working directory is read once on first use through
// godotenv; variables already set in the environment win. Struct fields are
// filled by caarlos0/env, and each configuration type is parsed once and
// cached:
//
//	type PageConfig struct {
//		Layout string `env:"PAGE_LAYOUT" envDefault:"classic"`
//	}
//
//	var cfg PageConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrNilTarget is returned when Load receives a nil pointer.
var ErrNilTarget = errors.New("config: target must be a non-nil pointer")

var (
	dotenvOnce sync.Once
	dotenvErr  error

	mu    sync.Mutex
	cache = map[reflect.Type]any{}
)

// Load fills cfg from the environment. The first successful load of a type is
// cached; later calls copy the cached value.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilTarget
	}

	dotenvOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			dotenvErr = fmt.Errorf("config: load .env: %w", err)
		}
	})
	if dotenvErr != nil {
		return dotenvErr
	}

	key := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*cfg = cached.(T)
		return nil
	}

	var loaded T
	if err := env.Parse(&loaded); err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	cache[key] = loaded
	*cfg = loaded
	return nil
}

// MustLoad is Load that panics on error. Meant for program startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Parse fills cfg from the given variables only, bypassing .env and the cache.
// Useful in tests and when the environment is a snapshot rather than the
// process environment.
func Parse[T any](cfg *T, vars map[string]string) error {
	if cfg == nil {
		return ErrNilTarget
	}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("config: parse %s: %w", reflect.TypeFor[T](), err)
	}
	return nil
}

// Reset clears the type cache. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cache = map[reflect.Type]any{}
}
