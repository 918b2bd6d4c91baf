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
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice.dev/lattice/route"
)

type user struct {
	name  string
	roles []string
}

// authenticate stores a user named by the X-User header as the identity.
func authenticate(users map[string]user) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, ok := users[r.Header.Get("X-User")]; ok {
				r = r.WithContext(WithIdentity(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TestGuard_RequireRoles(t *testing.T) {
	t.Parallel()

	users := map[string]user{
		"ada":   {name: "ada", roles: []string{"admin"}},
		"grace": {name: "grace", roles: []string{"viewer"}},
	}
	rolesOf := func(id any) []string { return id.(user).roles }

	a := newTestApp(t, WithLayer(Use(authenticate(users))))
	admin := NewRouter("/admin",
		Guards(RequireRoles(rolesOf)),
		Opt(OptRoles, []string{"admin", "owner"}),
	)
	require.NoError(t, admin.Register(
		Get("/stats", func(c *Context) (any, error) {
			return c.Identity().(user).name, nil
		}),
		Get("/open", returns("ok"), Opt(OptRoles, []string{})),
	))
	require.NoError(t, a.Register(admin))

	tests := []struct {
		name   string
		target string
		user   string
		status int
	}{
		{"anonymous", "/admin/stats", "", http.StatusUnauthorized},
		{"missing role", "/admin/stats", "grace", http.StatusForbidden},
		{"has role", "/admin/stats", "ada", http.StatusOK},
		{"route without roles", "/admin/open", "grace", http.StatusOK},
		{"route without roles needs identity", "/admin/open", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := send(t, a, http.MethodGet, tt.target, "", "X-User", tt.user)
			assert.Equal(t, tt.status, resp.StatusCode, body)
		})
	}
}

func TestGuard_RequireIdentityRunsInOrder(t *testing.T) {
	t.Parallel()

	var reached bool
	a := newTestApp(t)
	require.NoError(t, a.Register(Get("/me", returns("me"), Guards(
		RequireIdentity(),
		func(*Context, *route.Info) error {
			reached = true
			return nil
		},
	))))

	resp, body := send(t, a, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", problem(t, body)["code"])
	assert.False(t, reached)
}
