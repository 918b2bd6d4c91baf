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

// Package di builds and executes dependency graphs of named providers.
//
// A Provider is a factory that may depend on other named values. Build turns
// the set of names a handler requires into a validated, levelled Graph once
// at startup; unresolved names and cycles are reported there, never at
// request time. Resolve executes the graph level by level for one request:
//
//	graph, err := di.Build([]string{"svc"}, map[string]*di.Provider{
//	    "db":  di.New(openDB),
//	    "svc": di.New(newService, di.DependsOn("db")),
//	}, nil)
//
//	scope := di.NewScope(pool)
//	defer scope.Close(ctx)
//	values, err := graph.Resolve(ctx, scope, nil)
//
// # Caching
//
// Each provider runs at most once per Scope, however many nodes depend on
// it. Singleton providers run at most once per process; concurrent first
// calls wait for a single computation and later reads take no lock.
//
// # Concurrency
//
// Providers within one level are independent and run concurrently. Blocking
// providers are offloaded to a bounded Pool. Cancellation of the request
// context is observed between levels and while waiting for the pool.
//
// # Cleanup
//
// Scoped providers return a Cleanup alongside their value. Cleanups run in
// reverse order when the Scope is closed, on success and failure alike.
package di
