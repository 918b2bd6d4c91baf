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

package route

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTemplate indicates that a path template could not be compiled.
	ErrInvalidTemplate = errors.New("invalid path template")

	// ErrInvalidParam indicates that a raw path value does not parse as the declared type.
	ErrInvalidParam = errors.New("invalid path parameter value")
)

// TemplateError describes why a path template was rejected.
type TemplateError struct {
	Template string // Template as written by the caller
	Reason   string // Human readable reason
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("invalid path template %q: %s", e.Template, e.Reason)
}

// Is reports whether target is ErrInvalidTemplate.
func (e *TemplateError) Is(target error) bool {
	return target == ErrInvalidTemplate
}

func templateErrorf(template, format string, args ...any) *TemplateError {
	return &TemplateError{Template: template, Reason: fmt.Sprintf(format, args...)}
}
