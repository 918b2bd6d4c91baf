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
	"net/http"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"lattice.dev/lattice/binding"
	"lattice.dev/lattice/cache"
	"lattice.dev/lattice/di"
	apperrors "lattice.dev/lattice/errors"
	"lattice.dev/lattice/logging"
	"lattice.dev/lattice/metrics"
	"lattice.dev/lattice/route"
	"lattice.dev/lattice/router"
	"lattice.dev/lattice/validation"
)

const tracerName = "lattice.dev/lattice/app"

// App is the application: the root layer, the route tree and the
// collaborators used while dispatching requests.
//
// Configure and register everything first, then call [App.Startup] or
// [App.Run]. The first request freezes the application if that did not
// happen yet.
type App struct {
	root      *Layer
	settings  Settings
	logger    *logging.Logger
	metrics   *metrics.Recorder
	tracer    trace.Tracer
	prop      propagation.TextMapPropagator
	store     cache.Store
	formatter apperrors.Formatter
	body      *binding.Body
	pool      *di.Pool
	state     *State
	tree      *router.Tree
	hooks     hooks
	bannerOut io.Writer

	endpoints []*endpoint
	infos     []*route.Info

	freezeOnce sync.Once
	freezeErr  error
	frozen     atomic.Bool
	background sync.WaitGroup

	errs []error
}

// AppOption configures an [App].
type AppOption func(*App)

// WithSettings sets the startup parameters. Zero fields take their defaults.
func WithSettings(s Settings) AppOption {
	return func(a *App) {
		merged, err := s.withDefaults()
		if err != nil {
			a.errs = append(a.errs, fmt.Errorf("settings: %w", err))
			return
		}
		a.settings = merged
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) AppOption {
	return func(a *App) { a.logger = l }
}

// WithMetrics records request, provider, cache and guard metrics with r.
func WithMetrics(r *metrics.Recorder) AppOption {
	return func(a *App) { a.metrics = r }
}

// WithTracerProvider sets the tracer provider. The global one is used by
// default.
func WithTracerProvider(tp trace.TracerProvider) AppOption {
	return func(a *App) { a.tracer = tp.Tracer(tracerName) }
}

// WithPropagator sets the propagator that extracts the caller's trace
// context from request headers. The default is the global propagator.
func WithPropagator(p propagation.TextMapPropagator) AppOption {
	return func(a *App) { a.prop = p }
}

// WithCache sets the response cache store used by handlers with [Cache].
// Without it an in-memory store is used unless the settings name another
// backend, which [App.Run] dials.
func WithCache(s cache.Store) AppOption {
	return func(a *App) { a.store = s }
}

// WithErrorFormatter sets the formatter of error responses that no
// exception handler claims. The default is RFC 9457 problem details.
func WithErrorFormatter(f apperrors.Formatter) AppOption {
	return func(a *App) { a.formatter = f }
}

// WithBody sets the request body decoder.
func WithBody(b *binding.Body) AppOption {
	return func(a *App) { a.body = b }
}

// WithBannerOutput writes the startup banner of [App.Run] to w; nil
// disables it.
func WithBannerOutput(w io.Writer) AppOption {
	return func(a *App) { a.bannerOut = w }
}

// WithLayer configures the application layer.
func WithLayer(opts ...Option) AppOption {
	return func(a *App) {
		for _, opt := range opts {
			opt(a.root)
		}
	}
}

// New returns an application.
func New(opts ...AppOption) (*App, error) {
	a := &App{
		root:     &Layer{kind: kindApp, prefix: route.Root},
		settings: DefaultSettings(),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		prop:     otel.GetTextMapPropagator(),
		state:    newState(),
		tree:     router.NewTree(),
	}
	a.root.owner = a
	for _, opt := range opts {
		opt(a)
	}
	if len(a.errs) > 0 {
		return nil, errors.Join(a.errs...)
	}

	if a.logger == nil {
		a.logger = logging.Nop()
	}
	if a.formatter == nil {
		a.formatter = &apperrors.RFC9457{Debug: a.settings.Debug}
	}
	if a.body == nil {
		a.body = binding.NewBody(
			binding.WithMaxBytes(a.settings.MaxBodyBytes),
			binding.WithValidator(validation.MustNew()),
		)
	}
	if a.root.redirectSlashes == nil {
		enabled := a.settings.RedirectSlashes
		a.root.redirectSlashes = &enabled
	}
	if a.store == nil && a.settings.Cache.Backend == "memory" {
		a.store = cache.NewMemory(a.settings.Cache.TTL, 2*a.settings.Cache.TTL)
	}
	a.pool = di.NewPool(a.settings.Workers)

	if a.settings.Metrics.Enabled && a.metrics != nil {
		if err := a.Register(metricsHandler(a.settings.Metrics.Path, a.metrics)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...AppOption) *App {
	a, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Register mounts routers, controllers and handlers on the application.
func (a *App) Register(items ...Registrable) error {
	var errs []error
	for _, it := range items {
		if err := attach(a.root, it); err != nil {
			errs = append(errs, err)
		}
	}
	return join(errs)
}

// Settings returns the startup parameters.
func (a *App) Settings() Settings { return a.settings }

// Logger returns the application logger.
func (a *App) Logger() *logging.Logger { return a.logger }

// State returns the process-wide state.
func (a *App) State() *State { return a.state }

// Pool returns the worker pool used for blocking handlers and providers.
func (a *App) Pool() *di.Pool { return a.pool }

// Routes returns the metadata of every route in registration order. It is
// empty before [App.Freeze].
func (a *App) Routes() []route.Info {
	out := make([]route.Info, len(a.infos))
	for i, info := range a.infos {
		out[i] = *info
	}
	return out
}

// Effective returns the effective configuration of the handler serving
// method and path, for introspection.
func (a *App) Effective(method, path string) (*EffectiveConfig, bool) {
	if err := a.Freeze(); err != nil {
		return nil, false
	}
	m, err := a.tree.Match(method, path)
	if err != nil {
		return nil, false
	}
	return m.Route.Handler.(*endpoint).config, true
}

// RunBlocking runs fn on the worker pool of a.
func RunBlocking[T any](ctx context.Context, a *App, fn func() (T, error)) (T, error) {
	return di.RunBlocking(ctx, a.pool, fn)
}

func metricsHandler(path string, r *metrics.Recorder) *Handler {
	h := r.Handler()
	return Get(path, func(c *Context) (any, error) {
		h.ServeHTTP(c.Writer(), c.Request())
		return nil, nil
	}, Name("[builtin] metrics"))
}

var _ http.Handler = (*App)(nil)
