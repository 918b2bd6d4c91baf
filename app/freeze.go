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
	"slices"
	"sort"

	"lattice.dev/lattice/binding"
	"lattice.dev/lattice/di"
	"lattice.dev/lattice/route"
	"lattice.dev/lattice/router"
)

type reservedKind uint8

const (
	reservedRequest reservedKind = iota + 1
	reservedHeaders
	reservedCookies
	reservedQuery
	reservedBody
	reservedState
	reservedPathParams
)

// reserved are the input names always bound to request attributes.
var reserved = map[string]reservedKind{
	"request":     reservedRequest,
	"headers":     reservedHeaders,
	"cookies":     reservedCookies,
	"query":       reservedQuery,
	"body":        reservedBody,
	"state":       reservedState,
	"path_params": reservedPathParams,
}

type slotKind uint8

const (
	slotReserved slotKind = iota + 1
	slotPath
	slotParam
	slotBody
	slotDependency
)

// slot is one row of the binding table of an endpoint.
type slot struct {
	name     string
	kind     slotKind
	reserved reservedKind
	param    *Parameter
}

// endpoint is a handler compiled against its layer chain.
type endpoint struct {
	handler  *Handler
	path     *route.Template
	config   *EffectiveConfig
	slots    []slot
	graph    *di.Graph
	data     *bodySpec
	blocking bool
	infos    map[string]*route.Info
	serve    http.Handler
}

func (ep *endpoint) cached() bool { return ep.config.CacheTTL != nil }

// Freeze compiles every registered handler, builds the route tree and makes
// the application immutable. It runs once; later calls return the first
// result. Every configuration error is reported in one *RegistrationError.
func (a *App) Freeze() error {
	a.freezeOnce.Do(func() {
		a.freezeErr = a.freeze()
		a.frozen.Store(true)
		if a.freezeErr != nil {
			a.logger.Error("registration failed", "error", a.freezeErr)
		}
	})
	return a.freezeErr
}

// Frozen reports whether Freeze was called.
func (a *App) Frozen() bool { return a.frozen.Load() }

func (a *App) freeze() error {
	var errs []error
	a.walk(a.root, route.Root, func(l *Layer, prefix *route.Template, err error) {
		errs = append(errs, l.errs...)
		if err != nil {
			errs = append(errs, err)
		}
	}, func(h *Handler, path *route.Template) {
		ep, epErrs := a.compile(h, path)
		if len(epErrs) > 0 {
			for _, err := range epErrs {
				errs = append(errs, &routeError{route: h.describe(path), err: err})
			}
			return
		}
		for _, m := range h.methods {
			rt := &router.Route{Method: m, Template: path, Handler: ep, RedirectSlashes: ep.config.RedirectSlashes}
			if err := a.tree.Insert(rt); err != nil {
				errs = append(errs, err)
				continue
			}
			a.infos = append(a.infos, ep.infos[m])
		}
		a.endpoints = append(a.endpoints, ep)
	})
	a.tree.Freeze()
	if len(errs) > 0 {
		return &RegistrationError{Errs: errs}
	}
	return nil
}

// walk visits the registration tree depth first in registration order.
func (a *App) walk(l *Layer, prefix *route.Template, visit func(*Layer, *route.Template, error), handle func(*Handler, *route.Template)) {
	visit(l, prefix, nil)
	for _, child := range l.children {
		cl := child.layer()
		full, err := route.Combine(prefix, cl.prefix)
		if err != nil {
			visit(cl, prefix, err)
			continue
		}
		if h, ok := child.(*Handler); ok {
			errs := len(cl.errs)
			visit(cl, full, nil)
			if errs == 0 {
				handle(h, full)
			}
			continue
		}
		a.walk(cl, full, visit, handle)
	}
}

func (h *Handler) describe(path *route.Template) string {
	methods := slices.Clone(h.methods)
	sort.Strings(methods)
	return fmt.Sprintf("%v %s", methods, path)
}

// compile builds the effective configuration, binding table and dependency
// graph of h mounted at path.
func (a *App) compile(h *Handler, path *route.Template) (*endpoint, []error) {
	if h.fn == nil {
		return nil, []error{fmt.Errorf("%w: nil handler function", ErrInvalidBinding)}
	}
	chain := h.l.chain()
	ec := Resolve(chain)
	if ec.CacheTTL != nil && *ec.CacheTTL == 0 {
		ttl := a.settings.Cache.TTL
		ec.CacheTTL = &ttl
	}
	ep := &endpoint{
		handler:  h,
		path:     path,
		config:   ec,
		data:     h.l.data,
		blocking: h.l.blocking,
		infos:    make(map[string]*route.Info, len(h.methods)),
	}

	slots, errs := bindingTable(h.l, ec, path)
	if len(errs) > 0 {
		return nil, errs
	}

	var required []string
	bound := make(map[string]bool, len(slots))
	for _, s := range slots {
		bound[s.name] = true
		if s.kind == slotDependency {
			required = append(required, s.name)
		}
	}

	external := func(name string) bool {
		if _, ok := reserved[name]; ok {
			return true
		}
		if _, ok := ec.Params[name]; ok {
			return true
		}
		if _, ok := path.Param(name); ok {
			return true
		}
		return name == DataArg && ep.data != nil
	}
	graph, err := di.Build(required, ec.Providers, external)
	if err != nil {
		return nil, []error{err}
	}
	ep.graph = graph

	// Externals needed only by providers.
	for _, name := range graph.Externals() {
		if bound[name] {
			continue
		}
		s, _ := classify(name, h.l, ec, path, false)
		slots = append(slots, s)
	}
	ep.slots = slots

	for _, m := range h.methods {
		ep.infos[m] = &route.Info{
			Method:      m,
			Path:        path.String(),
			OpenAPIPath: path.OpenAPIPath(),
			Name:        h.l.name,
			Params:      path.Params(),
			Tags:        ec.Tags,
			Guards:      len(ec.Guards),
			Deps:        required,
			Opts:        ec.Opts,
			Blocking:    ep.blocking,
			Cached:      ep.cached(),
		}
	}

	var serve http.Handler = http.HandlerFunc(a.serveEndpoint)
	for i := len(ec.Middleware) - 1; i >= 0; i-- {
		serve = ec.Middleware[i](serve)
	}
	ep.serve = serve
	return ep, nil
}

// bindingTable classifies every input of the handler and every layered
// parameter.
func bindingTable(leaf *Layer, ec *EffectiveConfig, path *route.Template) ([]slot, []error) {
	var (
		slots []slot
		errs  []error
	)
	seen := make(map[string]bool)
	for _, name := range leaf.inputs {
		s, err := classify(name, leaf, ec, path, true)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seen[name] = true
		slots = append(slots, s)
	}

	names := make([]string, 0, len(ec.Params))
	for name := range ec.Params {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := path.Param(name); ok {
			errs = append(errs, &AmbiguityError{Route: path.String(), Name: name, With: ec.Params[name].Source.String() + " parameter"})
			continue
		}
		slots = append(slots, slot{name: name, kind: slotParam, param: ec.Params[name]})
	}
	return slots, errs
}

// classify applies the binding precedence to name: reserved attributes,
// explicit handler markers, providers, layered parameters, path parameters
// and finally a required query parameter. Providers may not fall back to the
// query string.
func classify(name string, leaf *Layer, ec *EffectiveConfig, path *route.Template, handler bool) (slot, error) {
	if k, ok := reserved[name]; ok {
		return slot{name: name, kind: slotReserved, reserved: k}, nil
	}
	_, isPath := path.Param(name)

	if handler {
		switch leaf.markers[name] {
		case markPath:
			if !isPath {
				return slot{}, fmt.Errorf("%w: %q is not a path parameter of %s", ErrInvalidBinding, name, path)
			}
			return slot{name: name, kind: slotPath}, nil
		case markInject:
			return slot{name: name, kind: slotDependency}, nil
		}
		if name == DataArg && leaf.data != nil {
			return slot{name: name, kind: slotBody}, nil
		}
		if p, ok := leaf.params[name]; ok {
			return slot{name: name, kind: slotParam, param: p}, nil
		}
	} else if name == DataArg && leaf.data != nil {
		return slot{name: name, kind: slotBody}, nil
	}

	if _, ok := ec.Providers[name]; ok {
		if isPath {
			return slot{}, &AmbiguityError{Route: path.String(), Name: name, With: "dependency"}
		}
		return slot{name: name, kind: slotDependency}, nil
	}
	if p, ok := ec.Params[name]; ok {
		if isPath {
			return slot{}, &AmbiguityError{Route: path.String(), Name: name, With: p.Source.String() + " parameter"}
		}
		return slot{name: name, kind: slotParam, param: p}, nil
	}
	if isPath {
		return slot{name: name, kind: slotPath}, nil
	}
	return slot{name: name, kind: slotParam, param: &Parameter{
		Name: name, Source: binding.SourceQuery, Key: name, Required: true,
	}}, nil
}
