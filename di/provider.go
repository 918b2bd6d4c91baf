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

package di

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Values holds resolved values by name.
type Values map[string]any

// Get returns the named value converted to T.
func Get[T any](v Values, name string) (T, error) {
	var zero T
	raw, ok := v[name]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrUnresolved, name)
	}
	if raw == nil {
		return zero, nil
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %q is %T, not %T", name, raw, zero)
	}
	return typed, nil
}

// Cleanup releases a resource acquired by a scoped provider.
type Cleanup func(ctx context.Context) error

// Func computes a provider value from its declared dependencies.
type Func func(ctx context.Context, deps Values) (any, error)

// ScopedFunc is like Func but also returns a cleanup to run when the scope closes.
type ScopedFunc func(ctx context.Context, deps Values) (any, Cleanup, error)

// Provider is a named factory. Its identity (pointer) is the per-request
// cache key, so one Provider registered under several names still runs once.
type Provider struct {
	fn        ScopedFunc
	deps      []string
	blocking  bool
	singleton bool
	scoped    bool

	// Singleton state. mu guards inflight and the first computation.
	mu       sync.Mutex
	ready    atomic.Bool
	value    any
	inflight *flight
}

// flight is one in-progress singleton computation.
type flight struct {
	done chan struct{}
	v    any
	err  error
}

// Option configures a Provider.
type Option func(*Provider)

// DependsOn declares the names the provider needs.
func DependsOn(names ...string) Option {
	return func(p *Provider) {
		p.deps = append(p.deps, names...)
	}
}

// Blocking marks the provider as blocking; it runs on the worker pool.
func Blocking() Option {
	return func(p *Provider) {
		p.blocking = true
	}
}

// Singleton caches the value for the lifetime of the process.
func Singleton() Option {
	return func(p *Provider) {
		p.singleton = true
	}
}

// New returns a provider for fn.
func New(fn Func, opts ...Option) *Provider {
	return newProvider(func(ctx context.Context, deps Values) (any, Cleanup, error) {
		v, err := fn(ctx, deps)
		return v, nil, err
	}, false, opts)
}

// NewScoped returns a provider whose cleanup runs when the request scope closes.
func NewScoped(fn ScopedFunc, opts ...Option) *Provider {
	return newProvider(fn, true, opts)
}

// Value returns a provider for a constant.
func Value(v any) *Provider {
	return New(func(context.Context, Values) (any, error) { return v, nil })
}

func newProvider(fn ScopedFunc, scoped bool, opts []Option) *Provider {
	p := &Provider{fn: fn, scoped: scoped}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Deps returns the declared dependency names.
func (p *Provider) Deps() []string {
	out := make([]string, len(p.deps))
	copy(out, p.deps)
	return out
}

// IsBlocking reports whether the provider runs on the worker pool.
func (p *Provider) IsBlocking() bool { return p.blocking }

// IsSingleton reports whether the value is cached process-wide.
func (p *Provider) IsSingleton() bool { return p.singleton }

// IsScoped reports whether the provider returns a cleanup.
func (p *Provider) IsScoped() bool { return p.scoped }

// shared returns the process-wide value, computing it once.
//
// The computation runs detached from ctx, so at most one is in flight no
// matter how many callers give up. Only the wait is bounded by ctx. A failed
// computation is not cached and is retried by the next caller.
func (p *Provider) shared(ctx context.Context, compute func(context.Context) (any, error)) (any, error) {
	if p.ready.Load() {
		return p.value, nil
	}

	p.mu.Lock()
	if p.ready.Load() {
		p.mu.Unlock()
		return p.value, nil
	}
	f := p.inflight
	if f == nil {
		f = &flight{done: make(chan struct{})}
		p.inflight = f
		go p.compute(context.WithoutCancel(ctx), f, compute)
	}
	p.mu.Unlock()

	select {
	case <-f.done:
		return f.v, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Provider) compute(ctx context.Context, f *flight, compute func(context.Context) (any, error)) {
	v, err := compute(ctx)

	p.mu.Lock()
	if err == nil {
		p.value = v
		p.ready.Store(true)
	}
	p.inflight = nil
	p.mu.Unlock()

	f.v, f.err = v, err
	close(f.done)
}
