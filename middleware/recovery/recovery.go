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

// Package recovery provides middleware that turns handler panics into
// 500 responses.
//
//	handler = recovery.New(recovery.WithLogger(logger))(handler)
//
// The panic is logged with a stack trace, and the active OpenTelemetry span
// is marked as failed with exception.escaped=true. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
package recovery

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	lerrors "lattice.dev/lattice/errors"
	"lattice.dev/lattice/logging"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger    *logging.Logger
	formatter lerrors.Formatter
	stackSize int
	handler   func(w http.ResponseWriter, r *http.Request, v any)
}

// WithLogger sets the logger receiving recovered panics. Default: no-op.
func WithLogger(l *logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithFormatter sets the formatter of the 500 response. Default: RFC 9457.
func WithFormatter(f lerrors.Formatter) Option {
	return func(c *config) { c.formatter = f }
}

// WithStackSize caps the logged stack trace in bytes. Zero disables it.
func WithStackSize(n int) Option {
	return func(c *config) { c.stackSize = n }
}

// WithHandler replaces the response written after a panic.
func WithHandler(h func(w http.ResponseWriter, r *http.Request, v any)) Option {
	return func(c *config) { c.handler = h }
}

// New returns the recovery middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		logger:    logging.Nop(),
		formatter: lerrors.NewRFC9457(""),
		stackSize: 4 << 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.handler == nil {
		cfg.handler = func(w http.ResponseWriter, r *http.Request, v any) {
			_ = lerrors.Write(w, r, cfg.formatter, lerrors.Internal(PanicError{Value: v}))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				markSpan(trace.SpanFromContext(r.Context()), v)

				args := []any{"method", r.Method, "path", r.URL.Path, "panic", fmt.Sprint(v)}
				if cfg.stackSize > 0 {
					stack := debug.Stack()
					if len(stack) > cfg.stackSize {
						stack = stack[:cfg.stackSize]
					}
					args = append(args, "stack", string(stack))
				}
				cfg.logger.Error("panic recovered", args...)
				cfg.handler(w, r, v)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap returns the panic value when it is an error.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func markSpan(span trace.Span, v any) {
	if !span.SpanContext().IsValid() {
		return
	}
	span.SetStatus(codes.Error, "panic recovered")
	span.SetAttributes(
		attribute.Bool("exception.escaped", true),
		attribute.String("exception.type", fmt.Sprintf("%T", v)),
		attribute.String("exception.message", fmt.Sprint(v)),
	)
	if err, ok := v.(error); ok {
		span.RecordError(err)
	}
}
