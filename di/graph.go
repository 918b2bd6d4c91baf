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

package di

import (
	"fmt"
	"slices"
)

// gnode is a provider bound to the name it was resolved under.
type gnode struct {
	name     string
	provider *Provider
	level    int
}

// Graph is a validated, levelled dependency graph. It is immutable and safe
// for concurrent use.
type Graph struct {
	required  []string
	levels    [][]*gnode
	externals []string // Names satisfied outside the graph, in discovery order
	size      int
}

// Build resolves required names against providers.
//
// external reports names satisfied outside the graph (request attributes,
// path parameters); it may be nil. A name with a provider always resolves to
// the provider. Errors: *UnresolvedError, *CycleError or ErrSingletonScoped.
func Build(required []string, providers map[string]*Provider, external func(name string) bool) (*Graph, error) {
	b := &builder{
		providers: providers,
		external:  external,
		nodes:     make(map[string]*gnode, len(providers)),
		ext:       make(map[string]struct{}),
		onStack:   make(map[string]bool),
	}

	for _, name := range required {
		if _, err := b.visit(name, ""); err != nil {
			return nil, err
		}
	}

	g := &Graph{required: slices.Clone(required), externals: b.extOrder, size: len(b.order)}
	for _, n := range b.order {
		for len(g.levels) <= n.level {
			g.levels = append(g.levels, nil)
		}
		g.levels[n.level] = append(g.levels[n.level], n)
	}
	return g, nil
}

type builder struct {
	providers map[string]*Provider
	external  func(string) bool
	nodes     map[string]*gnode
	order     []*gnode // Post-order, dependencies first
	ext       map[string]struct{}
	extOrder  []string
	onStack   map[string]bool
	stack     []string
}

// visit returns the level of name, or -1 for externals.
func (b *builder) visit(name, requiredBy string) (int, error) {
	if n, ok := b.nodes[name]; ok {
		return n.level, nil
	}
	if _, ok := b.ext[name]; ok {
		return -1, nil
	}

	p, ok := b.providers[name]
	if !ok {
		if b.external != nil && b.external(name) {
			b.ext[name] = struct{}{}
			b.extOrder = append(b.extOrder, name)
			return -1, nil
		}
		return 0, &UnresolvedError{Name: name, RequiredBy: requiredBy}
	}

	if b.onStack[name] {
		start := slices.Index(b.stack, name)
		path := append(slices.Clone(b.stack[start:]), name)
		return 0, &CycleError{Path: path}
	}
	if p.singleton && p.scoped {
		return 0, fmt.Errorf("%w: %q", ErrSingletonScoped, name)
	}

	b.onStack[name] = true
	b.stack = append(b.stack, name)

	level := 0
	for _, dep := range p.deps {
		l, err := b.visit(dep, name)
		if err != nil {
			return 0, err
		}
		level = max(level, l+1)
	}

	b.stack = b.stack[:len(b.stack)-1]
	delete(b.onStack, name)

	n := &gnode{name: name, provider: p, level: level}
	b.nodes[name] = n
	b.order = append(b.order, n)
	return level, nil
}

// Required returns the names the graph was built for.
func (g *Graph) Required() []string { return slices.Clone(g.required) }

// Externals returns the names satisfied outside the graph.
func (g *Graph) Externals() []string { return slices.Clone(g.externals) }

// Len returns the number of provider nodes.
func (g *Graph) Len() int { return g.size }

// Levels returns provider names grouped by execution level.
func (g *Graph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for i, level := range g.levels {
		for _, n := range level {
			out[i] = append(out[i], n.name)
		}
	}
	return out
}
