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
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice.dev/lattice/route"
)

func newRoute(method, path string, handler any) *Route {
	return &Route{Method: method, Template: route.MustCompile(path), Handler: handler}
}

func mustInsert(t *testing.T, tree *Tree, routes ...*Route) {
	t.Helper()
	for _, rt := range routes {
		require.NoError(t, tree.Insert(rt), "%s %s", rt.Method, rt.Template)
	}
}

func TestTree_StaticAndParams(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree,
		newRoute(http.MethodGet, "/", "root"),
		newRoute(http.MethodGet, "/users", "list"),
		newRoute(http.MethodGet, "/users/{id:int}", "get"),
		newRoute(http.MethodGet, "/users/{id:int}/posts/{post:uuid}", "post"),
	)

	m, err := tree.Match(http.MethodGet, "/")
	require.NoError(t, err)
	assert.Equal(t, "root", m.Route.Handler)

	m, err = tree.Match(http.MethodGet, "/users")
	require.NoError(t, err)
	assert.Equal(t, "list", m.Route.Handler)
	assert.Empty(t, m.Params)

	m, err = tree.Match(http.MethodGet, "/users/42")
	require.NoError(t, err)
	assert.Equal(t, "get", m.Route.Handler)
	v, ok := m.Params.Get("id")
	require.True(t, ok)
	assert.Equal(t, int64(42), v)

	id := uuid.New()
	m, err = tree.Match(http.MethodGet, "/users/7/posts/"+id.String())
	require.NoError(t, err)
	assert.Equal(t, "post", m.Route.Handler)
	assert.Equal(t, map[string]any{"id": int64(7), "post": id}, m.Params.Map())
}

func TestTree_ParamNamesBoundPerRoute(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree,
		newRoute(http.MethodGet, "/u/{id:int}", "a"),
		newRoute(http.MethodGet, "/u/{uid:int}/posts", "b"),
	)

	m, err := tree.Match(http.MethodGet, "/u/3/posts")
	require.NoError(t, err)
	require.Len(t, m.Params, 1)
	assert.Equal(t, "uid", m.Params[0].Name)
	assert.Equal(t, "3", m.Params[0].Raw)
}

func TestTree_LiteralBeatsParameter(t *testing.T) {
	t.Parallel()

	// Registration order must not matter.
	for _, order := range [][]string{
		{"/files/{name}", "/files/latest"},
		{"/files/latest", "/files/{name}"},
	} {
		tree := NewTree()
		for _, p := range order {
			mustInsert(t, tree, newRoute(http.MethodGet, p, p))
		}

		m, err := tree.Match(http.MethodGet, "/files/latest")
		require.NoError(t, err)
		assert.Equal(t, "/files/latest", m.Route.Handler)

		m, err = tree.Match(http.MethodGet, "/files/other")
		require.NoError(t, err)
		assert.Equal(t, "/files/{name}", m.Route.Handler)
	}
}

func TestTree_NoBacktracking(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree,
		newRoute(http.MethodGet, "/a/b/c", "literal"),
		newRoute(http.MethodGet, "/a/{x}/d", "param"),
	)

	// The literal edge "b" is taken and never revisited.
	_, err := tree.Match(http.MethodGet, "/a/b/d")
	require.ErrorIs(t, err, ErrNotFound)

	m, err := tree.Match(http.MethodGet, "/a/z/d")
	require.NoError(t, err)
	assert.Equal(t, "param", m.Route.Handler)
}

func TestTree_ConflictSameShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		first, second string
	}{
		{"/items", "/items"},
		{"/items/{id:int}", "/items/{other:int}"},
		{"/a/{x}/b/{y:uuid}", "/a/{p:str}/b/{q:uuid}"},
		{"/static/{p:path}", "/static/{rest:path}"},
	}

	for _, tt := range tests {
		tree := NewTree()
		mustInsert(t, tree, newRoute(http.MethodGet, tt.first, 1))

		err := tree.Insert(newRoute(http.MethodGet, tt.second, 2))
		require.ErrorIs(t, err, ErrRouteConflict, "%s vs %s", tt.first, tt.second)

		var ce *ConflictError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, http.MethodGet, ce.Method)

		// Other methods may share the shape.
		require.NoError(t, tree.Insert(newRoute(http.MethodPost, tt.second, 3)))
	}
}

func TestTree_ConflictDifferentParamType(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree, newRoute(http.MethodGet, "/items/{id:int}", 1))

	err := tree.Insert(newRoute(http.MethodPost, "/items/{slug:str}/tags", 2))
	require.ErrorIs(t, err, ErrRouteConflict)
	assert.Contains(t, err.Error(), "/items/{id:int}")

	// The rejected insert leaves no trace.
	_, err = tree.Match(http.MethodPost, "/items/x/tags")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, tree.Len())
}

func TestTree_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree,
		newRoute(http.MethodGet, "/orders", 1),
		newRoute(http.MethodPost, "/orders", 2),
	)

	_, err := tree.Match(http.MethodDelete, "/orders")
	require.ErrorIs(t, err, ErrMethodNotAllowed)

	var mna *MethodNotAllowedError
	require.True(t, errors.As(err, &mna))
	assert.Equal(t, []string{"GET", "HEAD", "POST"}, mna.Allowed)
	assert.Equal(t, http.StatusMethodNotAllowed, mna.Status())
	assert.Equal(t, []string{"GET", "HEAD", "POST"}, tree.AllowedMethods("/orders"))
}

func TestTree_HeadFallsBackToGet(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree, newRoute(http.MethodGet, "/health", "get"))

	m, err := tree.Match(http.MethodHead, "/health")
	require.NoError(t, err)
	assert.Equal(t, "get", m.Route.Handler)

	mustInsert(t, tree, newRoute(http.MethodHead, "/health", "head"))
	m, err = tree.Match(http.MethodHead, "/health")
	require.NoError(t, err)
	assert.Equal(t, "head", m.Route.Handler)
}

func TestTree_ParamParseFailure(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree, newRoute(http.MethodGet, "/items/{id:int}", 1))

	_, err := tree.Match(http.MethodGet, "/items/abc")
	require.Error(t, err)
	require.ErrorIs(t, err, route.ErrInvalidParam)

	var pe *ParamError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "id", pe.Name)
	assert.Equal(t, "abc", pe.Raw)
	assert.Equal(t, route.TypeInt, pe.Type)
	assert.Equal(t, http.StatusBadRequest, pe.Status())
}

func TestTree_CatchAll(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree,
		newRoute(http.MethodGet, "/static/{file:path}", "files"),
		newRoute(http.MethodGet, "/static/index", "index"),
	)

	tests := []struct {
		path    string
		handler string
		file    any
	}{
		{"/static/css/app.css", "files", "/css/app.css"},
		{"/static/index", "index", nil},
		{"/static/index/more", "files", nil},
		{"/static/", "files", "/"},
		{"/static", "files", "/"},
	}

	for _, tt := range tests {
		m, err := tree.Match(http.MethodGet, tt.path)
		if tt.path == "/static/index/more" {
			// "index" is taken as a literal and the walk does not backtrack.
			require.ErrorIs(t, err, ErrNotFound, tt.path)
			continue
		}
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.handler, m.Route.Handler, tt.path)
		if tt.file != nil {
			got, _ := m.Params.Get("file")
			assert.Equal(t, tt.file, got, tt.path)
		}
	}
}

func TestTree_TrailingSlashRedirect(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	rt := newRoute(http.MethodGet, "/docs", "docs")
	rt.RedirectSlashes = true
	mustInsert(t, tree, rt)

	m, err := tree.Match(http.MethodGet, "/docs/")
	require.NoError(t, err)
	assert.Equal(t, "/docs", m.Redirect)

	m, err = tree.Match(http.MethodGet, "/docs")
	require.NoError(t, err)
	assert.Empty(t, m.Redirect)
}

func TestTree_TrailingSlashRedirectAddsSlash(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	rt := newRoute(http.MethodGet, "/dir/{name}/", "dir")
	rt.RedirectSlashes = true
	mustInsert(t, tree, rt)

	m, err := tree.Match(http.MethodGet, "/dir/a")
	require.NoError(t, err)
	assert.Equal(t, "/dir/a/", m.Redirect)
	v, _ := m.Params.Get("name")
	assert.Equal(t, "a", v)
}

func TestTree_TrailingSlashDisabled(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree, newRoute(http.MethodGet, "/docs", "docs"))

	_, err := tree.Match(http.MethodGet, "/docs/")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTree_BothSlashVariantsServedIndependently(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	plain := newRoute(http.MethodGet, "/docs", "plain")
	plain.RedirectSlashes = true
	slashed := newRoute(http.MethodGet, "/docs/", "slashed")
	slashed.RedirectSlashes = true
	mustInsert(t, tree, plain, slashed)

	m, err := tree.Match(http.MethodGet, "/docs")
	require.NoError(t, err)
	assert.Equal(t, "plain", m.Route.Handler)
	assert.Empty(t, m.Redirect)

	m, err = tree.Match(http.MethodGet, "/docs/")
	require.NoError(t, err)
	assert.Equal(t, "slashed", m.Route.Handler)
	assert.Empty(t, m.Redirect)
}

func TestTree_Freeze(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	mustInsert(t, tree, newRoute(http.MethodGet, "/a", 1))
	tree.Freeze()

	assert.True(t, tree.Frozen())
	require.ErrorIs(t, tree.Insert(newRoute(http.MethodGet, "/b", 2)), ErrFrozen)
}

func TestTree_RoutesInRegistrationOrder(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	paths := []string{"/c", "/a", "/b/{id}"}
	for _, p := range paths {
		mustInsert(t, tree, newRoute(http.MethodGet, p, p))
	}

	routes := tree.Routes()
	require.Len(t, routes, 3)
	for i, rt := range routes {
		assert.Equal(t, paths[i], rt.Handler)
	}
}

func TestTree_ConcurrentMatchAfterFreeze(t *testing.T) {
	t.Parallel()

	tree := NewTree()
	for i := range 50 {
		mustInsert(t, tree, newRoute(http.MethodGet, fmt.Sprintf("/r%d/{id:int}", i), i))
	}
	tree.Freeze()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				m, err := tree.Match(http.MethodGet, fmt.Sprintf("/r%d/%d", i, g))
				assert.NoError(t, err)
				if m != nil {
					assert.Equal(t, i, m.Route.Handler)
				}
			}
		}()
	}
	wg.Wait()
}
