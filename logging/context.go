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

package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	fieldTraceID = "trace_id"
	fieldSpanID  = "span_id"
)

type ctxKey struct{}

// ContextLogger is a request-scoped logger. Entries carry trace_id and
// span_id when the context holds a valid OpenTelemetry span.
//
// Each instance is typically created once per request.
type ContextLogger struct {
	logger  *slog.Logger
	ctx     context.Context
	traceID string
	spanID  string
}

// NewContextLogger creates a context-aware logger from logger.
func NewContextLogger(ctx context.Context, logger *Logger) *ContextLogger {
	cl := &ContextLogger{logger: logger.Logger(), ctx: ctx}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		cl.traceID = sc.TraceID().String()
		cl.spanID = sc.SpanID().String()
		cl.logger = cl.logger.With(fieldTraceID, cl.traceID, fieldSpanID, cl.spanID)
	}
	return cl
}

// WithContext returns a copy of ctx carrying cl.
func WithContext(ctx context.Context, cl *ContextLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, cl)
}

// FromContext returns the logger stored by [WithContext], or a logger
// writing to [slog.Default] when none is present.
func FromContext(ctx context.Context) *ContextLogger {
	if cl, ok := ctx.Value(ctxKey{}).(*ContextLogger); ok {
		return cl
	}
	return &ContextLogger{logger: slog.Default(), ctx: ctx}
}

// Logger returns the underlying [slog.Logger].
func (cl *ContextLogger) Logger() *slog.Logger { return cl.logger }

// TraceID returns the trace ID if available.
func (cl *ContextLogger) TraceID() string { return cl.traceID }

// SpanID returns the span ID if available.
func (cl *ContextLogger) SpanID() string { return cl.spanID }

// With returns a ContextLogger with additional attributes.
func (cl *ContextLogger) With(args ...any) *ContextLogger {
	clone := *cl
	clone.logger = cl.logger.With(args...)
	return &clone
}

// Debug logs a debug message with context.
func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.DebugContext(cl.ctx, msg, args...)
}

// Info logs an info message with context.
func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.InfoContext(cl.ctx, msg, args...)
}

// Warn logs a warning message with context.
func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.WarnContext(cl.ctx, msg, args...)
}

// Error logs an error message with context.
func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.ErrorContext(cl.ctx, msg, args...)
}
