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

package di

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolved indicates a required name with no provider.
	ErrUnresolved = errors.New("unresolved dependency")

	// ErrCycle indicates a dependency cycle.
	ErrCycle = errors.New("dependency cycle")

	// ErrSingletonScoped indicates a singleton provider that declares a cleanup.
	ErrSingletonScoped = errors.New("singleton provider cannot be scoped")

	// ErrResolution indicates that a provider failed while resolving a graph.
	ErrResolution = errors.New("dependency resolution failed")

	// ErrScopeClosed indicates use of a scope after Close.
	ErrScopeClosed = errors.New("scope is closed")
)

// UnresolvedError reports a name with no provider and no external source.
type UnresolvedError struct {
	Name       string
	RequiredBy string // Empty when required directly by the handler
}

// Error implements the error interface.
func (e *UnresolvedError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("unresolved dependency %q", e.Name)
	}
	return fmt.Sprintf("unresolved dependency %q required by %q", e.Name, e.RequiredBy)
}

// Is reports whether target is ErrUnresolved.
func (e *UnresolvedError) Is(target error) bool { return target == ErrUnresolved }

// CycleError reports a dependency cycle. Path starts and ends with the same name.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Is reports whether target is ErrCycle.
func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// ResolutionError carries the name of the provider that failed.
type ResolutionError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("provider %q failed: %v", e.Name, e.Err)
}

// Unwrap returns the provider error.
func (e *ResolutionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrResolution.
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }
