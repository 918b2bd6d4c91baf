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

package router

import (
	"errors"
	"strings"
	"sync/atomic"

	"lattice.dev/lattice/route"
)

// Route is a registered route: a template, one method and an opaque handler.
type Route struct {
	Method          string
	Template        *route.Template
	Handler         any  // Owned by the caller, returned on match
	RedirectSlashes bool // Redirect the alternate trailing slash form here
}

// Param is a matched path parameter.
type Param struct {
	Name  string
	Raw   string // Value as it appeared in the path
	Value any    // Parsed according to the declared type
}

// Params holds matched parameters in template order.
type Params []Param

// Get returns the parsed value of the named parameter.
func (ps Params) Get(name string) (any, bool) {
	for i := range ps {
		if ps[i].Name == name {
			return ps[i].Value, true
		}
	}
	return nil, false
}

// Map returns the parameters as a name to value map.
func (ps Params) Map() map[string]any {
	m := make(map[string]any, len(ps))
	for _, p := range ps {
		m[p.Name] = p.Value
	}
	return m
}

// Match is a successful lookup.
type Match struct {
	Route  *Route
	Params Params

	// Redirect is set when the request should be redirected to the alternate
	// trailing slash form instead of being served.
	Redirect string
}

// Tree is the route tree. The zero value is not usable; use NewTree.
type Tree struct {
	root   *node
	routes []*Route
	frozen atomic.Bool
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{root: &node{}}
}

// Insert registers a route. It fails with a *ConflictError when the route
// overlaps an existing one and with ErrFrozen after Freeze.
func (t *Tree) Insert(rt *Route) error {
	if t.frozen.Load() {
		return ErrFrozen
	}
	rt.Method = strings.ToUpper(rt.Method)
	if err := t.root.check(rt); err != nil {
		return err
	}
	t.root.insert(rt)
	t.routes = append(t.routes, rt)
	return nil
}

// Freeze makes the tree read-only.
func (t *Tree) Freeze() { t.frozen.Store(true) }

// Frozen reports whether Freeze was called.
func (t *Tree) Frozen() bool { return t.frozen.Load() }

// Routes returns the registered routes in registration order.
func (t *Tree) Routes() []*Route {
	out := make([]*Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len returns the number of registered routes.
func (t *Tree) Len() int { return len(t.routes) }

// AllowedMethods returns the sorted methods served at path, or nil.
func (t *Tree) AllowedMethods(path string) []string {
	n, _ := t.root.lookup(path, nil)
	if n == nil || len(n.routes) == 0 {
		return nil
	}
	return n.allowed()
}

// Match looks up method and path.
//
// Errors: ErrNotFound, *MethodNotAllowedError or *ParamError. When there is no
// exact match but the alternate trailing slash form matches a route with
// RedirectSlashes, the returned Match has Redirect set.
func (t *Tree) Match(method, path string) (*Match, error) {
	m, err := t.match(method, path)
	if !errors.Is(err, ErrNotFound) {
		return m, err
	}

	alt, ok := alternate(path)
	if !ok {
		return nil, err
	}
	am, aerr := t.match(method, alt)
	if aerr != nil || !am.Route.RedirectSlashes {
		return nil, err
	}
	am.Redirect = alt
	return am, nil
}

func (t *Tree) match(method, path string) (*Match, error) {
	n, values := t.root.lookup(path, make([]string, 0, 4))
	if n == nil || len(n.routes) == 0 {
		return nil, ErrNotFound
	}

	rt := n.route(method)
	if rt == nil {
		return nil, &MethodNotAllowedError{Method: method, Allowed: n.allowed()}
	}

	params, err := bind(rt.Template, values)
	if err != nil {
		return nil, err
	}
	return &Match{Route: rt, Params: params}, nil
}

// bind names and parses the raw values using the route's own template.
func bind(tpl *route.Template, values []string) (Params, error) {
	decl := tpl.Params()
	if len(decl) == 0 {
		return nil, nil
	}

	params := make(Params, len(decl))
	for i, p := range decl {
		v, err := p.Type.Parse(values[i])
		if err != nil {
			return nil, &ParamError{Name: p.Name, Type: p.Type, Raw: values[i], Err: err}
		}
		params[i] = Param{Name: p.Name, Raw: values[i], Value: v}
	}
	return params, nil
}

// alternate toggles the trailing slash of path. The root has no alternate.
func alternate(path string) (string, bool) {
	if path == "" || path == "/" {
		return "", false
	}
	if trimmed, ok := strings.CutSuffix(path, "/"); ok {
		return trimmed, true
	}
	return path + "/", true
}
