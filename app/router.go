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
	"net/http"
	"reflect"
	"runtime"
	"strings"

	"lattice.dev/lattice/route"
)

// HandlerFunc handles a request. The returned value becomes the response
// body unless it is a *Response.
type HandlerFunc func(c *Context) (any, error)

// Guard authorizes a request before dependencies are resolved. It returns
// nil to allow, or an error to deny; [Unauthorized] and [Forbidden] select
// the status.
type Guard func(c *Context, info *route.Info) error

// Middleware wraps the dispatch of a handler.
type Middleware func(http.Handler) http.Handler

// BeforeHook runs before dependencies are resolved. A non-nil result is sent
// as the response and the handler is skipped.
type BeforeHook func(c *Context) (any, error)

// AfterHook receives the response before it is sent and may replace it.
type AfterHook func(c *Context, resp *Response) (*Response, error)

// AfterResponseHook runs after the response was sent. Its errors are logged.
type AfterResponseHook func(c *Context) error

// Registrable is a router, controller or handler.
type Registrable interface {
	layer() *Layer
}

// Handler is a request handler bound to one or more methods and a path.
type Handler struct {
	l       *Layer
	methods []string
	path    string
	fn      HandlerFunc
}

// Route returns a handler for methods at path.
func Route(methods []string, path string, fn HandlerFunc, opts ...Option) *Handler {
	h := &Handler{l: newLayer(kindHandler, path, opts), path: path, fn: fn}
	for _, m := range methods {
		h.methods = append(h.methods, strings.ToUpper(m))
	}
	if len(h.methods) == 0 {
		h.l.fail(fmt.Errorf("%w: handler %s has no methods", ErrInvalidBinding, path))
	}
	if h.l.name == "" {
		h.l.name = funcName(fn)
	}
	return h
}

// Get returns a GET handler.
func Get(path string, fn HandlerFunc, opts ...Option) *Handler {
	return Route([]string{http.MethodGet}, path, fn, opts...)
}

// Post returns a POST handler. Its default status is 201.
func Post(path string, fn HandlerFunc, opts ...Option) *Handler {
	return Route([]string{http.MethodPost}, path, fn, opts...)
}

// Put returns a PUT handler.
func Put(path string, fn HandlerFunc, opts ...Option) *Handler {
	return Route([]string{http.MethodPut}, path, fn, opts...)
}

// Patch returns a PATCH handler.
func Patch(path string, fn HandlerFunc, opts ...Option) *Handler {
	return Route([]string{http.MethodPatch}, path, fn, opts...)
}

// Delete returns a DELETE handler. Its default status is 204.
func Delete(path string, fn HandlerFunc, opts ...Option) *Handler {
	return Route([]string{http.MethodDelete}, path, fn, opts...)
}

// Head returns a HEAD handler. GET handlers serve HEAD without one.
func Head(path string, fn HandlerFunc, opts ...Option) *Handler {
	return Route([]string{http.MethodHead}, path, fn, opts...)
}

// Options returns an OPTIONS handler.
func Options(path string, fn HandlerFunc, opts ...Option) *Handler {
	return Route([]string{http.MethodOptions}, path, fn, opts...)
}

func (h *Handler) layer() *Layer { return h.l }

// Name returns the handler name.
func (h *Handler) Name() string { return h.l.name }

// Methods returns the methods the handler serves.
func (h *Handler) Methods() []string { return append([]string(nil), h.methods...) }

// Controller groups handlers under a path prefix and shared configuration.
// It holds handlers only.
type Controller struct {
	l *Layer
}

// NewController returns a controller mounted at prefix.
func NewController(prefix string, opts ...Option) *Controller {
	return &Controller{l: newLayer(kindController, prefix, opts)}
}

func (c *Controller) layer() *Layer { return c.l }

// Register adds handlers to the controller. A handler belongs to a single
// parent.
func (c *Controller) Register(handlers ...*Handler) error {
	var errs []error
	for _, h := range handlers {
		if err := attach(c.l, h); err != nil {
			errs = append(errs, err)
		}
	}
	return join(errs)
}

// Router groups routers, controllers and handlers under a path prefix.
type Router struct {
	l *Layer
}

// NewRouter returns a router mounted at prefix.
func NewRouter(prefix string, opts ...Option) *Router {
	return &Router{l: newLayer(kindRouter, prefix, opts)}
}

func (r *Router) layer() *Layer { return r.l }

// Register mounts items on the router. Each item may be mounted once; a
// second mount is a registration error.
func (r *Router) Register(items ...Registrable) error {
	var errs []error
	for _, it := range items {
		if err := attach(r.l, it); err != nil {
			errs = append(errs, err)
		}
	}
	return join(errs)
}

// attach links child below parent. Failures are also kept on parent so the
// application refuses to start.
func attach(parent *Layer, child Registrable) error {
	if child == nil || reflect.ValueOf(child).IsNil() {
		return nil
	}
	cl := child.layer()
	var err error
	switch {
	case parent.frozen():
		err = ErrFrozen
	case cl.parent != nil:
		err = fmt.Errorf("%w: %s %s is already mounted", ErrAlreadyRegistered, cl.kind, cl.prefix)
	case cl.ancestorOf(parent):
		err = fmt.Errorf("%w: %s %s cannot be mounted below itself", ErrAlreadyRegistered, cl.kind, cl.prefix)
	}
	if err != nil {
		parent.fail(err)
		return err
	}
	cl.parent = parent
	parent.children = append(parent.children, child)
	return nil
}

// frozen reports whether the application owning l was frozen.
func (l *Layer) frozen() bool {
	root := l
	for root.parent != nil {
		root = root.parent
	}
	return root.owner != nil && root.owner.frozen.Load()
}

func funcName(fn HandlerFunc) string {
	if fn == nil {
		return ""
	}
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func join(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return &RegistrationError{Errs: errs}
}
