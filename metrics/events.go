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

package metrics

import "log/slog"

// EventType is the severity of an internal event.
type EventType int

const (
	EventError EventType = iota
	EventWarning
	EventInfo
	EventDebug
)

// Event is an internal operational event, such as a rejected custom metric.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal events.
type EventHandler func(Event)

// DefaultEventHandler logs events to logger. A nil logger discards them.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}
	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

func (r *Recorder) emit(t EventType, msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: t, Message: msg, Args: args})
	}
}
