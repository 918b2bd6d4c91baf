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
	"fmt"
	"maps"
	"sync"
)

// State is the process-wide application state. It is writable while the
// application starts and shuts down; afterwards only keys marked mutable
// can change. Reads are always allowed.
type State struct {
	mu      sync.RWMutex
	values  map[string]any
	mutable map[string]bool
	sealed  bool
}

func newState() *State {
	return &State{values: make(map[string]any), mutable: make(map[string]bool)}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key. After startup it fails with ErrStateReadOnly
// unless key was marked mutable.
func (s *State) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed && !s.mutable[key] {
		return fmt.Errorf("%w: %q", ErrStateReadOnly, key)
	}
	s.values[key] = value
	return nil
}

// Delete removes key, with the same rules as Set.
func (s *State) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed && !s.mutable[key] {
		return fmt.Errorf("%w: %q", ErrStateReadOnly, key)
	}
	delete(s.values, key)
	return nil
}

// Mutable marks keys as writable after startup.
func (s *State) Mutable(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.mutable[k] = true
	}
}

// Snapshot returns a copy of all values.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Sealed reports whether the state is read-only.
func (s *State) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

func (s *State) seal(sealed bool) {
	s.mu.Lock()
	s.sealed = sealed
	s.mu.Unlock()
}

// StateValue returns the state value under key as T.
func StateValue[T any](s *State, key string) (T, bool) {
	v, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
