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
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"lattice.dev/lattice/binding"
	"lattice.dev/lattice/di"
	"lattice.dev/lattice/logging"
	"lattice.dev/lattice/route"
	"lattice.dev/lattice/router"
)

// Phase is a state of the request dispatcher.
type Phase uint8

const (
	PhaseMatching Phase = iota
	PhaseResolving
	PhaseGuarding
	PhaseBeforeHook
	PhaseInjecting
	PhaseInvoking
	PhaseAfterHook
	PhaseSending
	PhaseAfterResponseHook
	PhaseDone
	PhaseErrored
)

var phaseNames = [...]string{
	PhaseMatching:          "matching",
	PhaseResolving:         "resolving",
	PhaseGuarding:          "guarding",
	PhaseBeforeHook:        "before_hook",
	PhaseInjecting:         "injecting",
	PhaseInvoking:          "invoking",
	PhaseAfterHook:         "after_hook",
	PhaseSending:           "sending",
	PhaseAfterResponseHook: "after_response_hook",
	PhaseDone:              "done",
	PhaseErrored:           "errored",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

type ctxKey struct{}

// Context is the per-request state: the matched route, its parameters, the
// bound handler inputs and the dependency scope. It is not safe for use
// after the response was sent, except from the after_response hook.
type Context struct {
	app    *App
	ep     *endpoint
	req    *http.Request
	w      *responseWriter
	route  *route.Info
	params router.Params
	args   di.Values
	scope  *di.Scope
	phase  Phase

	pending <-chan di.Result // abandoned offloaded handler
	status int
	query  url.Values
	body   []byte
	read   bool
	values map[string]any
	logger *logging.ContextLogger
}

// FromRequest returns the Context carried by r, for use in middleware.
func FromRequest(r *http.Request) (*Context, bool) {
	c, ok := r.Context().Value(ctxKey{}).(*Context)
	return c, ok
}

// Request returns the request.
func (c *Context) Request() *http.Request { return c.req }

// Writer returns the response writer. A handler that writes to it directly
// takes over the response; its return value is then ignored.
func (c *Context) Writer() http.ResponseWriter { return c.w }

// Context returns the request context.
func (c *Context) Context() context.Context { return c.req.Context() }

// Route returns the metadata of the matched handler, or nil before matching.
func (c *Context) Route() *route.Info { return c.route }

// Phase returns the current dispatcher phase.
func (c *Context) Phase() Phase { return c.phase }

// Param returns a parsed path parameter.
func (c *Context) Param(name string) (any, bool) { return c.params.Get(name) }

// Params returns all path parameters.
func (c *Context) Params() router.Params { return c.params }

// Arg returns a bound handler input or resolved dependency.
func (c *Context) Arg(name string) (any, bool) {
	v, ok := c.args[name]
	return v, ok
}

// Args returns every bound input.
func (c *Context) Args() di.Values { return c.args }

// State returns the application state.
func (c *Context) State() *State { return c.app.state }

// Logger returns the request logger.
func (c *Context) Logger() *logging.ContextLogger { return c.log() }

func (c *Context) log() *logging.ContextLogger {
	if c.logger == nil {
		c.logger = logging.NewContextLogger(c.req.Context(), c.app.logger)
	}
	return c.logger
}

// Set stores a request-scoped value, typically by a guard or hook.
func (c *Context) Set(key string, v any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = v
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Identity returns the authenticated identity set by [WithIdentity].
func (c *Context) Identity() any { return Identity(c.req.Context()) }

// Query returns the parsed query string.
func (c *Context) Query() url.Values {
	if c.query == nil {
		c.query = c.req.URL.Query()
	}
	return c.query
}

// Body returns the raw request body. It is read once.
func (c *Context) Body() ([]byte, error) {
	if !c.read {
		data, err := c.app.body.Read(c.req)
		if err != nil {
			return nil, err
		}
		c.body, c.read = data, true
	}
	return c.body, nil
}

// Bind decodes the request body into out by Content-Type and validates it.
func (c *Context) Bind(out any) error {
	data, err := c.Body()
	if err != nil {
		return err
	}
	return c.app.body.Decode(c.req.Context(), c.req.Header.Get("Content-Type"), data, out)
}

// BindQuery binds query values into the struct out using "query" tags.
func (c *Context) BindQuery(out any) error {
	return binding.Values(binding.QueryGetter(c.Query()), binding.SourceQuery, out)
}

// BindHeaders binds headers into the struct out using "header" tags.
func (c *Context) BindHeaders(out any) error {
	return binding.Values(binding.HeaderGetter(c.req.Header), binding.SourceHeader, out)
}

func (c *Context) getter(src binding.Source) binding.ValueGetter {
	switch src {
	case binding.SourceHeader:
		return binding.HeaderGetter(c.req.Header)
	case binding.SourceCookie:
		return binding.CookieGetter(c.req.Cookies())
	}
	return binding.QueryGetter(c.Query())
}

// Arg returns the input name of c as T.
func Arg[T any](c *Context, name string) (T, error) {
	return di.Get[T](c.args, name)
}

// MustArg is like Arg but panics on a missing or mistyped input. The
// dispatcher turns the panic into an internal error.
func MustArg[T any](c *Context, name string) T {
	v, err := Arg[T](c, name)
	if err != nil {
		panic(err)
	}
	return v
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated identity.
// Authentication middleware calls it; guards read it with [Identity].
func WithIdentity(ctx context.Context, identity any) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// Identity returns the identity stored by WithIdentity, or nil.
func Identity(ctx context.Context) any { return ctx.Value(identityKey{}) }

// errResponseSealed is returned by writes that arrive after dispatch ended.
var errResponseSealed = errors.New("app: response already finished")

// responseWriter records the status and whether anything was written. Once
// sealed it drops further writes, which protects the connection from
// handlers that were abandoned but are still running.
type responseWriter struct {
	http.ResponseWriter

	mu      sync.Mutex
	status  int
	written bool
	sealed  bool
}

func (w *responseWriter) Header() http.Header {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sealed {
		return http.Header{}
	}
	return w.ResponseWriter.Header()
}

func (w *responseWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeHeader(code)
}

func (w *responseWriter) writeHeader(code int) {
	if w.written || w.sealed {
		return
	}
	w.status, w.written = code, true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sealed {
		return 0, errResponseSealed
	}
	if !w.written {
		w.writeHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// state returns the recorded status and whether the header was written.
func (w *responseWriter) state() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status, w.written
}

// abandon records status for a request nobody will read and seals w.
func (w *responseWriter) abandon(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.written {
		w.status = status
	}
	w.sealed = true
}

func (w *responseWriter) seal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sealed = true
}

func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
