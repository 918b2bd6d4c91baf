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
	"strings"
	"time"

	"lattice.dev/lattice/di"
	"lattice.dev/lattice/route"
)

type layerKind uint8

const (
	kindApp layerKind = iota
	kindRouter
	kindController
	kindHandler
)

func (k layerKind) String() string {
	switch k {
	case kindApp:
		return "application"
	case kindRouter:
		return "router"
	case kindController:
		return "controller"
	default:
		return "handler"
	}
}

// Layer is the configuration declared by one level of the registration
// hierarchy. Layers are built by options and never change after the
// application is frozen.
type Layer struct {
	kind     layerKind
	prefix   *route.Template
	parent   *Layer
	children []Registrable

	providers       map[string]*di.Provider
	guards          []Guard
	middleware      []Middleware
	before          BeforeHook
	after           AfterHook
	afterResponse   AfterResponseHook
	exceptions      exceptionTable
	params          map[string]*Parameter
	headers         http.Header
	cookies         map[string]*http.Cookie
	encoders        map[reflect.Type]Encoder
	opts            map[string]any
	tags            []string
	status          int
	cacheTTL        *time.Duration
	redirectSlashes *bool

	// Handler layers only.
	name     string
	inputs   []string
	markers  map[string]marker
	data     *bodySpec
	blocking bool

	owner *App // Application layer only
	errs  []error
}

// marker is an explicit binding declared on a handler.
type marker uint8

const (
	markPath marker = iota + 1
	markInject
)

func newLayer(kind layerKind, prefix string, opts []Option) *Layer {
	l := &Layer{kind: kind}
	tpl, err := route.Compile(prefix)
	if err != nil {
		l.fail(err)
		tpl = route.Root
	}
	l.prefix = tpl
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Layer) fail(err error) { l.errs = append(l.errs, err) }

func (l *Layer) handlerOnly(option string) bool {
	if l.kind != kindHandler {
		l.fail(fmt.Errorf("%w: %s is only valid on handlers, not on a %s", ErrInvalidBinding, option, l.kind))
		return false
	}
	return true
}

// chain returns the layers from the application down to l.
func (l *Layer) chain() []*Layer {
	var out []*Layer
	for cur := l; cur != nil; cur = cur.parent {
		out = append(out, cur)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ancestorOf reports whether l is other or one of its ancestors.
func (l *Layer) ancestorOf(other *Layer) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == l {
			return true
		}
	}
	return false
}

// Option configures a layer: the application, a router, a controller or a
// handler.
type Option func(*Layer)

// Provide registers a dependency provider under name. A provider declared
// closer to the handler replaces one with the same name further up.
func Provide(name string, p *di.Provider) Option {
	return func(l *Layer) {
		if name == "" || p == nil {
			l.fail(fmt.Errorf("%w: provider needs a name and a value", ErrInvalidBinding))
			return
		}
		if l.providers == nil {
			l.providers = make(map[string]*di.Provider)
		}
		l.providers[name] = p
	}
}

// Guards appends authorization guards. Guards of all layers run in chain
// order, application first.
func Guards(guards ...Guard) Option {
	return func(l *Layer) { l.guards = append(l.guards, guards...) }
}

// Use appends middleware. The first middleware of the application is the
// outermost.
func Use(mw ...Middleware) Option {
	return func(l *Layer) { l.middleware = append(l.middleware, mw...) }
}

// BeforeRequest sets the before_request hook. The nearest layer wins.
func BeforeRequest(h BeforeHook) Option {
	return func(l *Layer) { l.before = h }
}

// AfterRequest sets the after_request hook. The nearest layer wins.
func AfterRequest(h AfterHook) Option {
	return func(l *Layer) { l.after = h }
}

// AfterResponse sets the after_response hook. The nearest layer wins.
func AfterResponse(h AfterResponseHook) Option {
	return func(l *Layer) { l.afterResponse = h }
}

// ResponseHeader adds a header to every response of the layer.
func ResponseHeader(name, value string) Option {
	return func(l *Layer) {
		if l.headers == nil {
			l.headers = make(http.Header)
		}
		l.headers.Set(name, value)
	}
}

// ResponseCookie sets a cookie on every response of the layer. Cookies are
// merged by name; the nearest layer wins.
//
//	app.ResponseCookie(&http.Cookie{Name: "region", Value: "eu", Path: "/"})
func ResponseCookie(c *http.Cookie) Option {
	return func(l *Layer) {
		if l.cookies == nil {
			l.cookies = make(map[string]*http.Cookie)
		}
		cp := *c
		l.cookies[c.Name] = &cp
	}
}

// Encode registers a response encoder for values of type T.
//
//	app.Encode(func(d decimal.Decimal) (any, error) { return d.String(), nil })
func Encode[T any](fn func(T) (any, error)) Option {
	return func(l *Layer) {
		if l.encoders == nil {
			l.encoders = make(map[reflect.Type]Encoder)
		}
		l.encoders[reflect.TypeFor[T]()] = func(v any) (any, error) { return fn(v.(T)) }
	}
}

// Opt sets a key of the options bag handed to guards.
func Opt(key string, value any) Option {
	return func(l *Layer) {
		if l.opts == nil {
			l.opts = make(map[string]any)
		}
		l.opts[key] = value
	}
}

// Tags adds tags used by route introspection.
func Tags(tags ...string) Option {
	return func(l *Layer) { l.tags = append(l.tags, tags...) }
}

// Status sets the default success status code.
func Status(code int) Option {
	return func(l *Layer) {
		if code < 100 || code > 599 {
			l.fail(fmt.Errorf("%w: status %d", ErrInvalidBinding, code))
			return
		}
		l.status = code
	}
}

// Cache enables response caching for GET and HEAD requests. A zero ttl uses
// the application default; a negative ttl disables caching below this layer.
func Cache(ttl time.Duration) Option {
	return func(l *Layer) { l.cacheTTL = &ttl }
}

// RedirectSlashes controls whether a request for the alternate trailing
// slash form of a route is redirected to it.
func RedirectSlashes(enabled bool) Option {
	return func(l *Layer) { l.redirectSlashes = &enabled }
}

// Name sets the handler name used in logs and route listings.
func Name(name string) Option {
	return func(l *Layer) {
		if l.handlerOnly("Name") {
			l.name = name
		}
	}
}

// Blocking marks the handler as blocking. It runs on the worker pool.
func Blocking() Option {
	return func(l *Layer) {
		if l.handlerOnly("Blocking") {
			l.blocking = true
		}
	}
}

// Args declares the inputs of a handler. Each name is bound, in order of
// precedence, to a reserved request value, an explicit marker, a provider, a
// layered parameter, a path parameter and finally a required query string.
func Args(names ...string) Option {
	return func(l *Layer) {
		if l.handlerOnly("Args") {
			l.addInputs(names...)
		}
	}
}

// Path binds the handler input name to the path parameter of the same name.
func Path(name string) Option {
	return func(l *Layer) { l.mark("Path", name, markPath) }
}

// Inject binds the handler input name to the provider of the same name.
func Inject(name string) Option {
	return func(l *Layer) { l.mark("Inject", name, markInject) }
}

func (l *Layer) mark(option, name string, m marker) {
	if !l.handlerOnly(option) {
		return
	}
	if l.markers == nil {
		l.markers = make(map[string]marker)
	}
	l.markers[name] = m
	l.addInputs(name)
}

func (l *Layer) addInputs(names ...string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			l.fail(fmt.Errorf("%w: empty input name", ErrInvalidBinding))
			continue
		}
		found := false
		for _, have := range l.inputs {
			if have == n {
				found = true
				break
			}
		}
		if !found {
			l.inputs = append(l.inputs, n)
		}
	}
}
