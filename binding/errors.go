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

package binding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedMediaType is returned for a Content-Type with no decoder.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrEmptyBody is returned when a body is required but absent.
	ErrEmptyBody = errors.New("request body is empty")
	// ErrBodyTooLarge is returned when a body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("request body too large")
	// ErrUnsupportedType is returned for struct fields that cannot be bound.
	ErrUnsupportedType = errors.New("unsupported field type")
)

// Source identifies where a bound value came from.
type Source int

const (
	SourceQuery Source = iota
	SourcePath
	SourceHeader
	SourceCookie
	SourceBody
)

func (s Source) String() string {
	switch s {
	case SourceQuery:
		return "query"
	case SourcePath:
		return "path"
	case SourceHeader:
		return "header"
	case SourceCookie:
		return "cookie"
	case SourceBody:
		return "body"
	}
	return "unknown"
}

// BindError reports a value that could not be converted.
type BindError struct {
	Source Source
	Field  string // key in the source, empty for whole-body failures
	Value  string
	Err    error
}

func (e *BindError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s %q: invalid value %q: %v", e.Source, e.Field, e.Value, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// MultiError collects every field that failed in one binding.
type MultiError struct {
	Errors []*BindError
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (m *MultiError) Unwrap() []error {
	errs := make([]error, len(m.Errors))
	for i, e := range m.Errors {
		errs[i] = e
	}
	return errs
}

// Details maps each failed field to its message.
func (m *MultiError) Details() map[string]string {
	out := make(map[string]string, len(m.Errors))
	for _, e := range m.Errors {
		out[e.Field] = e.Err.Error()
	}
	return out
}

func (m *MultiError) errorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
