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
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Observer is notified after every provider invocation.
type Observer func(name string, elapsed time.Duration, err error)

// ExternalFunc supplies values for names satisfied outside the graph.
type ExternalFunc func(ctx context.Context, name string) (any, error)

// Scope is the per-request provider cache. It is owned by one request.
type Scope struct {
	pool    *Pool
	observe Observer

	mu       sync.Mutex
	entries  map[*Provider]*entry
	cleanups []Cleanup
	closed   bool
}

type entry struct {
	done chan struct{}
	v    any
	err  error
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithObserver sets the provider invocation observer.
func WithObserver(o Observer) ScopeOption {
	return func(s *Scope) {
		s.observe = o
	}
}

// NewScope returns an empty scope. A nil pool runs blocking providers inline.
func NewScope(pool *Pool, opts ...ScopeOption) *Scope {
	s := &Scope{pool: pool, entries: make(map[*Provider]*entry, 8)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defer registers a cleanup. After Close the cleanup runs immediately.
func (s *Scope) Defer(c Cleanup) {
	s.mu.Lock()
	if !s.closed {
		s.cleanups = append(s.cleanups, c)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	_ = c(context.Background())
}

// Close runs the registered cleanups in reverse order and joins their errors.
// Close is idempotent.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cleanups := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if _, err := protect(func() (any, error) { return nil, cleanups[i](ctx) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resolve executes the graph for one request and returns every resolved
// value, externals included.
//
// Levels run in order; providers within a level run concurrently. The first
// provider failure is returned as a *ResolutionError. Errors from ext are
// returned as is.
func (g *Graph) Resolve(ctx context.Context, scope *Scope, ext ExternalFunc) (Values, error) {
	values := make(Values, g.size+len(g.externals))

	for _, name := range g.externals {
		if ext == nil {
			return nil, &UnresolvedError{Name: name}
		}
		v, err := ext(ctx, name)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}

	for _, level := range g.levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results := make([]any, len(level))
		if len(level) == 1 {
			v, err := scope.call(ctx, level[0], args(level[0], values))
			if err != nil {
				return nil, err
			}
			results[0] = v
		} else {
			// No derived context: values may outlive the level.
			var eg errgroup.Group
			for i, n := range level {
				deps := args(n, values)
				eg.Go(func() error {
					v, err := scope.call(ctx, n, deps)
					results[i] = v
					return err
				})
			}
			if err := eg.Wait(); err != nil {
				return nil, err
			}
		}

		for i, n := range level {
			values[n.name] = results[i]
		}
	}

	return values, nil
}

func args(n *gnode, values Values) Values {
	deps := make(Values, len(n.provider.deps))
	for _, name := range n.provider.deps {
		deps[name] = values[name]
	}
	return deps
}

// call returns the cached value of the node's provider or computes it.
func (s *Scope) call(ctx context.Context, n *gnode, deps Values) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, &ResolutionError{Name: n.name, Err: ErrScopeClosed}
	}
	if e, ok := s.entries[n.provider]; ok {
		s.mu.Unlock()
		select {
		case <-e.done:
			return e.v, e.err
		case <-ctx.Done():
			return nil, &ResolutionError{Name: n.name, Err: ctx.Err()}
		}
	}
	e := &entry{done: make(chan struct{})}
	s.entries[n.provider] = e
	s.mu.Unlock()

	e.v, e.err = s.invoke(ctx, n, deps)
	close(e.done)
	return e.v, e.err
}

func (s *Scope) invoke(ctx context.Context, n *gnode, deps Values) (any, error) {
	p := n.provider
	start := time.Now()

	compute := func(ctx context.Context) (any, error) {
		run := func() (any, error) {
			v, cleanup, err := p.fn(ctx, deps)
			if cleanup != nil {
				s.Defer(cleanup)
			}
			return v, err
		}
		if p.blocking && s.pool != nil {
			return s.pool.Run(ctx, run)
		}
		return protect(run)
	}

	var (
		v   any
		err error
	)
	if p.singleton {
		v, err = p.shared(ctx, compute)
	} else {
		v, err = compute(ctx)
	}

	if s.observe != nil {
		s.observe(n.name, time.Since(start), err)
	}
	if err != nil {
		return nil, &ResolutionError{Name: n.name, Err: err}
	}
	return v, nil
}
