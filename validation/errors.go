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

package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrValidation matches every [Error] and [FieldError] with errors.Is.
var ErrValidation = errors.New("validation")

// ErrNilValue is returned when validating a nil value.
var ErrNilValue = errors.New("cannot validate nil value")

// FieldError is a single failed constraint.
type FieldError struct {
	Path    string         `json:"path"`           // JSON path, e.g. "items.2.price"
	Code    string         `json:"code"`           // e.g. "tag.required"
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

func (e FieldError) Unwrap() error { return ErrValidation }

// Error collects the field errors of one validation.
type Error struct {
	Fields []FieldError `json:"errors"`
}

func (v *Error) Error() string {
	msgs := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		msgs[i] = f.Error()
	}
	if len(msgs) == 1 {
		return msgs[0]
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

func (v *Error) Unwrap() error { return ErrValidation }

// Add appends a field error.
func (v *Error) Add(path, code, message string) {
	v.Fields = append(v.Fields, FieldError{Path: path, Code: code, Message: message})
}

// Has reports whether path has at least one error.
func (v *Error) Has(path string) bool {
	for _, f := range v.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

// Details returns the field errors keyed by path, the shape used in error
// response bodies.
func (v *Error) Details() map[string]string {
	out := make(map[string]string, len(v.Fields))
	for _, f := range v.Fields {
		if _, dup := out[f.Path]; !dup {
			out[f.Path] = f.Message
		}
	}
	return out
}

// ErrorOrNil returns v, or nil when it holds no field errors.
func (v *Error) ErrorOrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	v.sort()
	return v
}

func (v *Error) sort() {
	sort.SliceStable(v.Fields, func(i, j int) bool {
		if v.Fields[i].Path != v.Fields[j].Path {
			return v.Fields[i].Path < v.Fields[j].Path
		}
		return v.Fields[i].Code < v.Fields[j].Code
	})
}
