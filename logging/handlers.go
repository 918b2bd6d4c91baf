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
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTime   = lipgloss.NewStyle().Faint(true)
	styleMsg    = lipgloss.NewStyle().Bold(true)
	styleKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleSource = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	levelStyles = map[slog.Level]lipgloss.Style{
		slog.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		slog.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		slog.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		slog.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

var consoleBuilderPool = sync.Pool{
	New: func() any { return &strings.Builder{} },
}

// consoleHandler implements [slog.Handler] with one human-readable line per
// record. Intended for local development; use [JSONHandler] in production.
type consoleHandler struct {
	opts   *slog.HandlerOptions
	mu     *sync.Mutex
	output io.Writer
	prefix string // pre-rendered WithAttrs output
	group  string // dotted group prefix
}

func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *consoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &consoleHandler{opts: opts, mu: &sync.Mutex{}, output: w}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	b := consoleBuilderPool.Get().(*strings.Builder)
	b.Reset()
	defer consoleBuilderPool.Put(b)

	b.WriteString(styleTime.Render(r.Time.Format("15:04:05.000")))
	b.WriteByte(' ')
	b.WriteString(levelStyle(r.Level).Render(fmt.Sprintf("%-5s", r.Level.String())))
	b.WriteByte(' ')
	b.WriteString(styleMsg.Render(r.Message))
	b.WriteString(h.prefix)

	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(b, h.group, a)
		return true
	})

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			b.WriteByte(' ')
			b.WriteString(styleSource.Render(fmt.Sprintf("(%s:%d)", filepath.Base(frame.File), frame.Line)))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.output, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		h.appendAttr(&b, h.group, a)
	}
	clone := *h
	clone.prefix = b.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func (h *consoleHandler) appendAttr(b *strings.Builder, group string, a slog.Attr) {
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		var groups []string
		if group != "" {
			groups = strings.Split(strings.TrimSuffix(group, "."), ".")
		}
		a = h.opts.ReplaceAttr(groups, a)
	}
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := group
		if a.Key != "" {
			sub += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, sub, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(styleKey.Render(group + a.Key))
	b.WriteByte('=')
	switch a.Value.Kind() {
	case slog.KindTime:
		b.WriteString(a.Value.Time().Format(time.RFC3339))
	case slog.KindFloat64:
		fmt.Fprintf(b, "%.2f", a.Value.Float64())
	default:
		b.WriteString(a.Value.String())
	}
}

func levelStyle(level slog.Level) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return levelStyles[slog.LevelError]
	case level >= slog.LevelWarn:
		return levelStyles[slog.LevelWarn]
	case level >= slog.LevelInfo:
		return levelStyles[slog.LevelInfo]
	default:
		return levelStyles[slog.LevelDebug]
	}
}
