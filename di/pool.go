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
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of blocking calls running at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool returns a pool running at most size blocking calls concurrently.
// A size below one defaults to 4 × GOMAXPROCS.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 4 * runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the pool capacity.
func (p *Pool) Size() int { return p.size }

// PanicError is returned when offloaded or provider code panics.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Result is the outcome of a call started with Go.
type Result struct {
	Value any
	Err   error
}

// Go starts fn on a pool slot. The returned channel receives exactly one
// Result once fn returns. Go fails only when ctx ends while waiting for a
// slot, in which case fn never runs.
func (p *Pool) Go(ctx context.Context, fn func() (any, error)) (<-chan Result, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	done := make(chan Result, 1)
	go func() {
		defer p.sem.Release(1)
		v, err := protect(fn)
		done <- Result{Value: v, Err: err}
	}()
	return done, nil
}

// Run executes fn on a pool slot.
//
// Run returns early with the context error when ctx is cancelled while
// waiting for a slot or for fn; fn then finishes in the background and keeps
// its slot until it returns. Callers that must know when fn is done use Go.
func (p *Pool) Run(ctx context.Context, fn func() (any, error)) (any, error) {
	done, err := p.Go(ctx, fn)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunBlocking executes fn on the pool and returns its typed result.
func RunBlocking[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	v, err := p.Run(ctx, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	typed, _ := v.(T)
	return typed, nil
}

// protect runs fn and converts a panic into a *PanicError.
func protect(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
