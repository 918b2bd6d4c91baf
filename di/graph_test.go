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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any, opts ...Option) *Provider {
	return New(func(context.Context, Values) (any, error) { return v, nil }, opts...)
}

func TestBuild_Levels(t *testing.T) {
	t.Parallel()

	g, err := Build([]string{"svc"}, map[string]*Provider{
		"cfg":  constant("cfg"),
		"db":   constant("db", DependsOn("cfg")),
		"log":  constant("log"),
		"repo": constant("repo", DependsOn("db", "log")),
		"svc":  constant("svc", DependsOn("repo", "cfg")),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, [][]string{{"cfg", "log"}, {"db"}, {"repo"}, {"svc"}}, g.Levels())
	assert.Equal(t, []string{"svc"}, g.Required())
}

func TestBuild_Externals(t *testing.T) {
	t.Parallel()

	reserved := map[string]bool{"request": true, "id": true}
	g, err := Build([]string{"user", "id"}, map[string]*Provider{
		"user": constant("u", DependsOn("request", "id")),
	}, func(name string) bool { return reserved[name] })
	require.NoError(t, err)

	assert.Equal(t, []string{"request", "id"}, g.Externals())
	assert.Equal(t, [][]string{{"user"}}, g.Levels())
}

func TestBuild_ProviderShadowsExternal(t *testing.T) {
	t.Parallel()

	g, err := Build([]string{"query"}, map[string]*Provider{
		"query": constant("q"),
	}, func(string) bool { return true })
	require.NoError(t, err)
	assert.Empty(t, g.Externals())
	assert.Equal(t, 1, g.Len())
}

func TestBuild_Unresolved(t *testing.T) {
	t.Parallel()

	_, err := Build([]string{"svc"}, map[string]*Provider{
		"svc": constant("svc", DependsOn("missing")),
	}, func(string) bool { return false })
	require.ErrorIs(t, err, ErrUnresolved)

	var ue *UnresolvedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "missing", ue.Name)
	assert.Equal(t, "svc", ue.RequiredBy)

	_, err = Build([]string{"nothing"}, nil, nil)
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Equal(t, `unresolved dependency "nothing"`, err.Error())
}

func TestBuild_Cycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		providers map[string]*Provider
		path      []string
	}{
		{
			name:      "self",
			providers: map[string]*Provider{"a": constant(1, DependsOn("a"))},
			path:      []string{"a", "a"},
		},
		{
			name: "indirect",
			providers: map[string]*Provider{
				"a": constant(1, DependsOn("b")),
				"b": constant(2, DependsOn("c")),
				"c": constant(3, DependsOn("a")),
			},
			path: []string{"a", "b", "c", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Build([]string{"a"}, tt.providers, nil)
			require.ErrorIs(t, err, ErrCycle)

			var ce *CycleError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.path, ce.Path)
		})
	}
}

func TestBuild_DiamondIsNotACycle(t *testing.T) {
	t.Parallel()

	_, err := Build([]string{"top"}, map[string]*Provider{
		"base":  constant(0),
		"left":  constant(1, DependsOn("base")),
		"right": constant(2, DependsOn("base")),
		"top":   constant(3, DependsOn("left", "right")),
	}, nil)
	require.NoError(t, err)
}

func TestBuild_SingletonScopedRejected(t *testing.T) {
	t.Parallel()

	p := NewScoped(func(context.Context, Values) (any, Cleanup, error) {
		return nil, nil, nil
	}, Singleton())

	_, err := Build([]string{"conn"}, map[string]*Provider{"conn": p}, nil)
	require.ErrorIs(t, err, ErrSingletonScoped)
}
