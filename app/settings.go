// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"dario.cat/mergo"

	"lattice.dev/lattice/cache"
	"lattice.dev/lattice/config"
	"lattice.dev/lattice/logging"
	"lattice.dev/lattice/tracing"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Settings are the startup parameters of an application. They are usually
// loaded with [LoadSettings] from a file and LATTICE_ environment variables,
// where a double underscore separates nested keys (LATTICE_LOG__LEVEL).
type Settings struct {
	Name            string        `config:"name" default:"lattice"`
	Version         string        `config:"version" default:"dev"`
	Address         string        `config:"address" default:":8080"`
	Environment     string        `config:"environment" default:"development"`
	Debug           bool          `config:"debug"`
	Workers         int           `config:"workers"` // Worker pool size, 0 for GOMAXPROCS
	RedirectSlashes bool          `config:"redirect_slashes"`
	ShutdownTimeout time.Duration `config:"shutdown_timeout" default:"30s"`
	MaxBodyBytes    int64         `config:"max_body_bytes" default:"4194304"`

	Log     LogSettings     `config:"log"`
	Cache   CacheSettings   `config:"cache"`
	Metrics MetricsSettings `config:"metrics"`
	Tracing TracingSettings `config:"tracing"`
}

// LogSettings configure the application logger.
type LogSettings struct {
	Level  string `config:"level" default:"info"`
	Format string `config:"format" default:"json"` // json, text or console
}

// CacheSettings configure the response cache.
type CacheSettings struct {
	Backend   string        `config:"backend" default:"memory"` // memory or redis
	TTL       time.Duration `config:"ttl" default:"1m"`
	RedisAddr string        `config:"redis_addr"`
	Prefix    string        `config:"prefix" default:"lattice:"`
}

// MetricsSettings configure the metrics endpoint.
type MetricsSettings struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path" default:"/metrics"`
}

// TracingSettings configure span export.
type TracingSettings struct {
	Exporter   string  `config:"exporter" default:"none"` // none, stdout, otlp or otlp-http
	Endpoint   string  `config:"endpoint"`
	Insecure   bool    `config:"insecure"`
	SampleRate float64 `config:"sample_rate" default:"1"` // Zero reads as unset
}

// Validate implements config.Validator.
func (s *Settings) Validate() error {
	var errs []error
	if s.Address == "" {
		errs = append(errs, errors.New("address is required"))
	}
	switch s.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", s.Environment))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", s.Workers))
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch logging.HandlerType(s.Log.Format) {
	case logging.JSONHandler, logging.TextHandler, logging.ConsoleHandler:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", s.Log.Format))
	}
	switch s.Cache.Backend {
	case "memory":
	case "redis":
		if s.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", s.Cache.Backend))
	}
	if _, err := tracing.ParseExporter(s.Tracing.Exporter); err != nil {
		errs = append(errs, err)
	}
	if s.Tracing.SampleRate < 0 || s.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate must be between 0 and 1, got %v", s.Tracing.SampleRate))
	}
	return errors.Join(errs...)
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	var s Settings
	cfg := config.MustNew(config.WithBinding(&s))
	if err := cfg.Load(context.Background()); err != nil {
		panic(fmt.Sprintf("app: default settings: %v", err))
	}
	return s
}

// LoadSettings reads settings from path, when not empty, and from
// environment variables starting with envPrefix. Environment variables win.
func LoadSettings(ctx context.Context, path, envPrefix string) (Settings, error) {
	var s Settings
	opts := []config.Option{config.WithBinding(&s)}
	if path != "" {
		opts = append(opts, config.WithFile(path))
	}
	if envPrefix != "" {
		opts = append(opts, config.WithEnv(envPrefix))
	}
	cfg, err := config.New(opts...)
	if err != nil {
		return Settings{}, err
	}
	if err = cfg.Load(ctx); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// withDefaults fills the zero fields of s from DefaultSettings.
func (s Settings) withDefaults() (Settings, error) {
	if err := mergo.Merge(&s, DefaultSettings()); err != nil {
		return Settings{}, fmt.Errorf("merge settings: %w", err)
	}
	return s, s.Validate()
}

// NewLogger builds the logger described by the settings.
func (s Settings) NewLogger(w io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stdout
	}
	return logging.New(
		logging.WithHandlerType(logging.HandlerType(s.Log.Format)),
		logging.WithOutput(w),
		logging.WithLevel(level),
		logging.WithServiceName(s.Name),
		logging.WithServiceVersion(s.Version),
		logging.WithEnvironment(s.Environment),
	)
}

// NewTracing builds the tracer provider described by the settings and
// registers it globally. w receives the stdout exporter output.
func (s Settings) NewTracing(ctx context.Context, w io.Writer) (*tracing.Provider, error) {
	exporter, err := tracing.ParseExporter(s.Tracing.Exporter)
	if err != nil {
		return nil, err
	}
	opts := []tracing.Option{
		tracing.WithServiceName(s.Name),
		tracing.WithServiceVersion(s.Version),
		tracing.WithEnvironment(s.Environment),
		tracing.WithExporter(exporter, s.Tracing.Endpoint),
		tracing.WithSampleRate(s.Tracing.SampleRate),
		tracing.WithGlobal(),
	}
	if s.Tracing.Insecure {
		opts = append(opts, tracing.WithInsecure())
	}
	if w != nil {
		opts = append(opts, tracing.WithWriter(w))
	}
	return tracing.New(ctx, opts...)
}

// NewCache builds the response cache store described by the settings.
func (s Settings) NewCache(ctx context.Context) (cache.Store, error) {
	if s.Cache.Backend == "redis" {
		return cache.DialRedis(ctx, s.Cache.RedisAddr, s.Cache.Prefix, s.Cache.TTL)
	}
	return cache.NewMemory(s.Cache.TTL, 2*s.Cache.TTL), nil
}
