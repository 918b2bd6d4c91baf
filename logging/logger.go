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
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// HandlerType represents the type of logging handler.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs.
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
	// ConsoleHandler outputs human-readable colored logs.
	ConsoleHandler HandlerType = "console"
)

// Level represents log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel parses "debug", "info", "warn" or "error" (case-insensitive).
func ParseLevel(s string) (Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

// SamplingConfig configures log sampling.
//
// The first Initial entries of every Tick window are logged, then 1 in every
// Thereafter entries. Errors are never sampled.
type SamplingConfig struct {
	Initial    int           // Log first N entries unconditionally
	Thereafter int           // After Initial, log 1 of every M entries (0 = log all)
	Tick       time.Duration // Reset the counter every interval (0 = never)
}

// Logger provides structured logging on top of [slog].
//
// Thread-safety: all methods are safe for concurrent use.
type Logger struct {
	handlerType HandlerType
	output      io.Writer
	level       slog.LevelVar

	serviceName    string
	serviceVersion string
	environment    string

	addSource      bool
	redact         map[string]struct{}
	replaceAttr    func(groups []string, a slog.Attr) slog.Attr
	registerGlobal bool

	sampling    *SamplingConfig
	sampleCount atomic.Int64
	windowStart atomic.Int64 // Unix nanoseconds

	slogger  *slog.Logger
	shutdown atomic.Bool
}

// Option is a functional option for configuring the logger.
type Option func(*Logger)

var defaultRedacted = []string{"password", "token", "secret", "api_key", "authorization", "cookie"}

// New creates a new Logger with the given options.
//
// New does not replace the global slog default unless WithGlobalLogger is set.
func New(opts ...Option) (*Logger, error) {
	l := &Logger{
		handlerType: JSONHandler,
		output:      os.Stdout,
		redact:      make(map[string]struct{}, len(defaultRedacted)),
	}
	l.level.Set(LevelInfo)
	for _, k := range defaultRedacted {
		l.redact[k] = struct{}{}
	}

	for _, opt := range opts {
		opt(l)
	}

	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       &l.level,
		AddSource:   l.addSource,
		ReplaceAttr: l.replace,
	}

	var handler slog.Handler
	switch l.handlerType {
	case JSONHandler:
		handler = slog.NewJSONHandler(l.output, handlerOpts)
	case TextHandler:
		handler = slog.NewTextHandler(l.output, handlerOpts)
	case ConsoleHandler:
		handler = newConsoleHandler(l.output, handlerOpts)
	}

	sl := slog.New(handler)
	var attrs []any
	if l.serviceName != "" {
		attrs = append(attrs, "service", l.serviceName)
	}
	if l.serviceVersion != "" {
		attrs = append(attrs, "version", l.serviceVersion)
	}
	if l.environment != "" {
		attrs = append(attrs, "env", l.environment)
	}
	if len(attrs) > 0 {
		sl = sl.With(attrs...)
	}
	l.slogger = sl

	if l.registerGlobal {
		slog.SetDefault(sl)
	}
	l.windowStart.Store(time.Now().UnixNano())

	return l, nil
}

// MustNew creates a new Logger or panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return MustNew(WithOutput(io.Discard), WithLevel(LevelError+4))
}

func (l *Logger) validate() error {
	if l.output == nil {
		return ErrNilOutput
	}
	switch l.handlerType {
	case JSONHandler, TextHandler, ConsoleHandler:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}
	if l.sampling != nil && (l.sampling.Initial < 0 || l.sampling.Thereafter < 0) {
		return ErrInvalidSampling
	}
	return nil
}

// replace redacts sensitive keys, then applies the user replacer.
func (l *Logger) replace(groups []string, a slog.Attr) slog.Attr {
	if _, ok := l.redact[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "***REDACTED***")
	}
	if l.replaceAttr != nil {
		return l.replaceAttr(groups, a)
	}
	return a
}

func (l *Logger) shouldSample(level slog.Level) bool {
	if level >= slog.LevelError || l.sampling == nil {
		return true
	}

	if tick := l.sampling.Tick; tick > 0 {
		now := time.Now().UnixNano()
		start := l.windowStart.Load()
		if now-start >= int64(tick) && l.windowStart.CompareAndSwap(start, now) {
			l.sampleCount.Store(0)
		}
	}

	count := l.sampleCount.Add(1)
	if count <= int64(l.sampling.Initial) || l.sampling.Thereafter == 0 {
		return true
	}
	return (count-int64(l.sampling.Initial))%int64(l.sampling.Thereafter) == 0
}

// Logger returns the underlying [slog.Logger].
func (l *Logger) Logger() *slog.Logger { return l.slogger }

// With returns a [slog.Logger] with additional attributes.
func (l *Logger) With(args ...any) *slog.Logger { return l.slogger.With(args...) }

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if l.shutdown.Load() || !l.slogger.Enabled(ctx, level) || !l.shouldSample(level) {
		return
	}
	l.slogger.Log(ctx, level, msg, args...)
}

// Debug logs a debug message with structured attributes.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs an informational message with structured attributes.
func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs a warning message with structured attributes.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs an error message. Errors bypass sampling.
func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args...)
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level Level) { l.level.Set(level) }

// Level returns the current minimum level.
func (l *Logger) Level() Level { return l.level.Level() }

// ServiceName returns the service name.
func (l *Logger) ServiceName() string { return l.serviceName }

// Shutdown stops the logger; later calls are dropped.
func (l *Logger) Shutdown(_ context.Context) error {
	l.shutdown.Store(true)
	return nil
}
