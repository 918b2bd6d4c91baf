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
	"fmt"
	"net/http"
	"slices"
	"strings"

	"lattice.dev/lattice/route"
)

// edge represents a per-segment literal child (linear scan, no map hashing in the hot path).
// The empty label is the trailing slash edge.
type edge struct {
	label string
	node  *node
}

// param represents the single typed parameter child of a node.
type param struct {
	typ   route.ParamType
	owner string // Template of the route that created the edge
	node  *node
}

// node represents a node in the route tree.
//
// Thread safety:
// Routes are registered during a single-threaded configuration phase. After
// Freeze(), the tree is immutable and safe for concurrent reads without locking.
type node struct {
	edges    []edge            // Literal children
	param    *param            // Parameter child (if any)
	catchAll *node             // Path typed child consuming the remainder (if any)
	routes   map[string]*Route // Routes terminating here, by method
	methods  []string          // Methods in registration order
}

// findChild returns the child node for the given segment, or nil.
func (n *node) findChild(segment string) *node {
	for i := range n.edges {
		if n.edges[i].label == segment {
			return n.edges[i].node
		}
	}
	return nil
}

// findOrCreateChild returns the child node for the given segment, creating it if needed.
func (n *node) findOrCreateChild(segment string) *node {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := &node{}
	n.edges = append(n.edges, edge{label: segment, node: child})
	return child
}

// route returns the route registered for method. HEAD falls back to GET.
func (n *node) route(method string) *Route {
	if rt, ok := n.routes[method]; ok {
		return rt
	}
	if method == http.MethodHead {
		return n.routes[http.MethodGet]
	}
	return nil
}

// allowed returns the sorted methods served by the node.
func (n *node) allowed() []string {
	out := slices.Clone(n.methods)
	if _, ok := n.routes[http.MethodGet]; ok {
		if _, ok := n.routes[http.MethodHead]; !ok {
			out = append(out, http.MethodHead)
		}
	}
	slices.Sort(out)
	return out
}

// check walks the template without mutating the tree and reports the first
// conflict the insert would cause.
func (n *node) check(rt *Route) error {
	current := n
	for _, seg := range rt.Template.Segments() {
		switch {
		case seg.IsParam && seg.Type == route.TypePath:
			current = current.catchAll
		case seg.IsParam:
			if current.param == nil {
				return nil
			}
			if current.param.typ != seg.Type {
				return &ConflictError{
					Method:   rt.Method,
					Path:     rt.Template.String(),
					Existing: current.param.owner,
					Reason: fmt.Sprintf("parameter %q of type %s occupies a position typed %s",
						seg.Name, seg.Type, current.param.typ),
				}
			}
			current = current.param.node
		default:
			current = current.findChild(seg.Literal)
		}
		if current == nil {
			return nil
		}
	}

	if existing, ok := current.routes[rt.Method]; ok {
		return &ConflictError{
			Method:   rt.Method,
			Path:     rt.Template.String(),
			Existing: existing.Template.String(),
			Reason:   "same method and shape",
		}
	}
	return nil
}

// insert adds the route. check must have succeeded.
func (n *node) insert(rt *Route) {
	current := n
	for _, seg := range rt.Template.Segments() {
		switch {
		case seg.IsParam && seg.Type == route.TypePath:
			if current.catchAll == nil {
				current.catchAll = &node{}
			}
			current = current.catchAll
		case seg.IsParam:
			if current.param == nil {
				current.param = &param{typ: seg.Type, owner: rt.Template.String(), node: &node{}}
			}
			current = current.param.node
		default:
			current = current.findOrCreateChild(seg.Literal)
		}
	}

	if current.routes == nil {
		current.routes = make(map[string]*Route, 2)
	}
	current.routes[rt.Method] = rt
	current.methods = append(current.methods, rt.Method)
}

// lookup descends the tree for path and collects raw parameter values
// positionally. It returns nil when no node matches.
//
// Order at each node: literal edge, parameter edge, catch-all. There is no
// backtracking: once an edge is taken the alternatives are never revisited.
func (n *node) lookup(path string, values []string) (*node, []string) {
	current := n
	if path == "" || path == "/" {
		return current, values
	}

	rest := strings.TrimPrefix(path, "/")
	for {
		segment, tail, more := strings.Cut(rest, "/")

		switch child := current.findChild(segment); {
		case child != nil:
			current = child
		case current.param != nil && segment != "":
			current = current.param.node
			values = append(values, segment)
		case current.catchAll != nil:
			return current.catchAll, append(values, rest)
		default:
			return nil, values
		}

		if !more {
			break
		}
		rest = tail
	}

	// An exhausted path may still select an empty catch-all remainder.
	if len(current.routes) == 0 && current.catchAll != nil {
		return current.catchAll, append(values, "")
	}
	return current, values
}
