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

package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lattice.dev/lattice/route"
)

var (
	// ErrRouteConflict indicates that a route overlaps an already registered route.
	ErrRouteConflict = errors.New("route conflict")

	// ErrNotFound indicates that no route matches the request path.
	ErrNotFound = errors.New("route not found")

	// ErrMethodNotAllowed indicates that the path matches but not for the request method.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrFrozen indicates an insert after the tree was frozen.
	ErrFrozen = errors.New("route tree is frozen")
)

// ConflictError describes a rejected insert.
type ConflictError struct {
	Method   string // Method of the rejected route
	Path     string // Template of the rejected route
	Existing string // Template already occupying the position
	Reason   string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("route conflict: %s %s conflicts with %s: %s", e.Method, e.Path, e.Existing, e.Reason)
}

// Is reports whether target is ErrRouteConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrRouteConflict }

// MethodNotAllowedError is returned when the path exists for other methods.
type MethodNotAllowedError struct {
	Method  string
	Allowed []string // Sorted
}

// Error implements the error interface.
func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed, allowed: %s", e.Method, strings.Join(e.Allowed, ", "))
}

// Is reports whether target is ErrMethodNotAllowed.
func (e *MethodNotAllowedError) Is(target error) bool { return target == ErrMethodNotAllowed }

// Status returns 405.
func (e *MethodNotAllowedError) Status() int { return http.StatusMethodNotAllowed }

// ParamError reports a path value that does not parse as its declared type.
type ParamError struct {
	Name string
	Type route.ParamType
	Raw  string
	Err  error
}

// Error implements the error interface.
func (e *ParamError) Error() string {
	return fmt.Sprintf("path parameter %q: %v", e.Name, e.Err)
}

// Unwrap returns the parse error, which wraps route.ErrInvalidParam.
func (e *ParamError) Unwrap() error { return e.Err }

// Status returns 400.
func (e *ParamError) Status() int { return http.StatusBadRequest }
