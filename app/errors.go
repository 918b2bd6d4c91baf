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

package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyRegistered indicates a router, controller or handler mounted
	// on a second parent.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrFrozen indicates a registration after the application was frozen.
	ErrFrozen = errors.New("application is frozen")

	// ErrAmbiguous indicates a handler input name with two possible sources.
	ErrAmbiguous = errors.New("ambiguous parameter")

	// ErrInvalidBinding indicates a malformed parameter declaration.
	ErrInvalidBinding = errors.New("invalid parameter binding")

	// ErrStateReadOnly indicates a write to a sealed state key.
	ErrStateReadOnly = errors.New("state is read-only")
)

// RegistrationError collects every configuration error found by
// [App.Freeze]. The application does not serve traffic after one.
type RegistrationError struct {
	Errs []error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if len(e.Errs) == 1 {
		return "registration failed: " + e.Errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "registration failed with %d errors:", len(e.Errs))
	for _, err := range e.Errs {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the collected errors.
func (e *RegistrationError) Unwrap() []error { return e.Errs }

// AmbiguityError reports a handler input that is both a path parameter and
// a dependency or declared parameter.
type AmbiguityError struct {
	Route string
	Name  string
	With  string // The competing source
}

// Error implements the error interface.
func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("%s: %q is both a path parameter and a %s", e.Route, e.Name, e.With)
}

// Is reports whether target is ErrAmbiguous.
func (e *AmbiguityError) Is(target error) bool { return target == ErrAmbiguous }

// routeError prefixes a registration error with the route it belongs to.
type routeError struct {
	route string
	err   error
}

func (e *routeError) Error() string { return e.route + ": " + e.err.Error() }
func (e *routeError) Unwrap() error { return e.err }
