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
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// LogRequest logs a completed request with the standard access fields:
// method, path, status, duration_ms and, when non-empty, route and query.
//
//	logger.LogRequest(r, "/users/{id:int}", 200, time.Since(start), "bytes", 512)
func (l *Logger) LogRequest(r *http.Request, route string, status int, elapsed time.Duration, extra ...any) {
	attrs := make([]any, 0, 12+len(extra))
	attrs = append(attrs,
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"duration_ms", float64(elapsed.Microseconds())/1000,
	)
	if route != "" {
		attrs = append(attrs, "route", route)
	}
	if r.URL.RawQuery != "" {
		attrs = append(attrs, "query", r.URL.RawQuery)
	}
	attrs = append(attrs, extra...)

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}
	l.log(r.Context(), level, "request", attrs...)
}

// LogError logs err under the "error" key with additional fields.
func (l *Logger) LogError(err error, msg string, extra ...any) {
	attrs := make([]any, 0, 2+len(extra))
	attrs = append(attrs, "error", err.Error())
	attrs = append(attrs, extra...)
	l.log(context.Background(), slog.LevelError, msg, attrs...)
}

// ErrorWithStack logs err with a stack trace of the caller.
// Reserve it for unexpected failures such as recovered panics.
func (l *Logger) ErrorWithStack(msg string, err error, extra ...any) {
	attrs := make([]any, 0, 4+len(extra))
	attrs = append(attrs, "error", err.Error(), "stack", captureStack(3))
	attrs = append(attrs, extra...)
	l.log(context.Background(), slog.LevelError, msg, attrs...)
}

// captureStack formats up to 16 frames, skipping skip frames.
func captureStack(skip int) string {
	var buf strings.Builder
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return buf.String()
}
