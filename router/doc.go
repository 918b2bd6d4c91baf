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

// Package router implements the route tree: a segment trie over compiled
// route templates with typed parameter edges.
//
// # Matching Rules
//
// At each node the matcher tries, in order:
//
//  1. the literal edge equal to the request segment
//  2. the single parameter edge of the node
//  3. the catch-all (path typed) edge, which consumes the remainder
//
// Matching never backtracks, so a lookup is O(segment count) and the result
// for a given path is deterministic: a literal always beats a parameter at the
// same position. Parameter values are parsed with their declared type after
// the structural match; a value that does not parse is reported as a
// *ParamError.
//
// # Conflicts
//
// A node owns at most one parameter edge. Inserting a route whose parameter
// type differs from the edge already at that position, or a second route with
// the same method and shape, fails with a *ConflictError.
//
// # Trailing Slashes
//
// /items and /items/ are distinct paths. When a request has no exact match
// and the alternate form (slash added or removed) matches a route registered
// with RedirectSlashes, Match reports a redirect to the alternate form.
// When both forms are registered each is served on its own.
//
// # Thread Safety
//
// Routes are inserted during a single-threaded configuration phase. After
// Freeze the tree is immutable and safe for concurrent lookups without locks.
package router
