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

// Package app assembles layered HTTP applications: an application layer,
// routers, controllers and handlers, each able to contribute dependencies,
// guards, middleware, hooks, exception handlers, parameters and options.
//
// # Registration
//
// Layers form a tree rooted at the [App]. Configuration declared on a layer
// applies to every handler below it; the nearest layer wins for keyed
// settings and lists are concatenated from the application downwards:
//
//	users := app.NewRouter("/users",
//	    app.Provide("repo", di.New(newRepo, di.DependsOn("db"))),
//	    app.Guards(app.RequireIdentity()),
//	)
//	_ = users.Register(
//	    app.Get("/{id:int}", getUser, app.Args("id", "repo")),
//	    app.Post("/", createUser, app.Data[CreateUser](), app.Inject("repo")),
//	)
//
//	a := app.MustNew(app.WithSettings(settings), app.WithLogger(logger))
//	_ = a.Register(users)
//
// # Freezing
//
// [App.Freeze] compiles every handler once: it merges the layer chain into an
// [EffectiveConfig], builds the binding table of the handler inputs and the
// dependency graph, and inserts the routes. All configuration errors are
// returned together. The application is immutable afterwards; the first
// request freezes it implicitly.
//
// # Handler inputs
//
// Each input name is bound by the first matching rule:
//
//  1. reserved names: request, headers, cookies, query, body, state, path_params
//  2. markers on the handler: [Path], [Inject], [Data], [Query], [Header], [Cookie]
//  3. a dependency provided by the layer chain
//  4. a parameter declared on any layer of the chain
//  5. a path parameter of the route
//  6. a required query parameter
//
// A name that is both a path parameter and a dependency or layered parameter
// is a registration error.
//
// # Dispatch
//
// Requests move through matching, guarding, the before_request hook,
// injection, the handler, the after_request hook and sending. Scoped
// dependency cleanups run once the response is written and the
// after_response hook runs in the background. Errors from any step go
// through the exception handlers of the nearest layer and then through the
// error formatter.
package app
