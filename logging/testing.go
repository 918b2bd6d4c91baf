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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LogEntry represents a parsed log entry for testing.
type LogEntry struct {
	Level   string
	Message string
	Attrs   map[string]any
}

// SyncBuffer is a [bytes.Buffer] safe for concurrent writes, for capturing
// logs emitted from background goroutines.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Bytes returns a copy of the buffered output.
func (b *SyncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

// String returns the buffered output.
func (b *SyncBuffer) String() string { return string(b.Bytes()) }

// Reset clears the buffer.
func (b *SyncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// NewTestLogger creates a debug-level JSON [Logger] writing to memory.
func NewTestLogger(opts ...Option) (*Logger, *SyncBuffer) {
	buf := &SyncBuffer{}
	all := append([]Option{WithJSONHandler(), WithOutput(buf), WithLevel(LevelDebug)}, opts...)
	return MustNew(all...), buf
}

// ParseJSONLogEntries parses newline-delimited JSON log output.
func ParseJSONLogEntries(data []byte) ([]LogEntry, error) {
	var entries []LogEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var raw map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			return nil, fmt.Errorf("parse log line: %w", err)
		}
		le := LogEntry{Attrs: make(map[string]any, len(raw))}
		le.Message, _ = raw["msg"].(string)
		le.Level, _ = raw["level"].(string)
		for k, v := range raw {
			if k != "time" && k != "level" && k != "msg" {
				le.Attrs[k] = v
			}
		}
		entries = append(entries, le)
	}
	return entries, scanner.Err()
}

// TestHelper bundles a test logger with assertions over its output.
type TestHelper struct {
	Logger *Logger
	Buffer *SyncBuffer
}

// NewTestHelper creates a [TestHelper]. Extra options customize the logger.
func NewTestHelper(t *testing.T, opts ...Option) *TestHelper {
	t.Helper()
	logger, buf := NewTestLogger(opts...)
	return &TestHelper{Logger: logger, Buffer: buf}
}

// Logs returns all parsed log entries.
func (th *TestHelper) Logs() ([]LogEntry, error) {
	return ParseJSONLogEntries(th.Buffer.Bytes())
}

// Find returns the first entry with msg, or nil.
func (th *TestHelper) Find(msg string) *LogEntry {
	entries, err := th.Logs()
	if err != nil {
		return nil
	}
	for i := range entries {
		if entries[i].Message == msg {
			return &entries[i]
		}
	}
	return nil
}

// ContainsLog reports whether any entry has msg.
func (th *TestHelper) ContainsLog(msg string) bool { return th.Find(msg) != nil }

// CountLevel returns the number of entries at level ("INFO", "ERROR", ...).
func (th *TestHelper) CountLevel(level string) int {
	entries, _ := th.Logs()
	n := 0
	for _, e := range entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// AssertLog fails t unless an entry with level and msg exists whose
// attributes include attrs. JSON numbers decode as float64.
func (th *TestHelper) AssertLog(t *testing.T, level, msg string, attrs map[string]any) {
	t.Helper()
	entry := th.Find(msg)
	require.NotNil(t, entry, "no log entry with message %q", msg)
	assert.Equal(t, level, entry.Level)
	for k, want := range attrs {
		assert.Equal(t, want, entry.Attrs[k], "attribute %q", k)
	}
}
