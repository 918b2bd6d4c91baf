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
	"slices"

	apperrors "lattice.dev/lattice/errors"
	"lattice.dev/lattice/route"
)

// OptRoles is the option key read by [RequireRoles].
const OptRoles = "roles"

// RequireIdentity denies requests without an identity (see [WithIdentity])
// with 401.
func RequireIdentity() Guard {
	return func(c *Context, _ *route.Info) error {
		if c.Identity() == nil {
			return apperrors.Unauthorized("")
		}
		return nil
	}
}

// AllowIf denies requests for which allow returns false with 403 and msg.
func AllowIf(msg string, allow func(c *Context, info *route.Info) bool) Guard {
	return func(c *Context, info *route.Info) error {
		if allow(c, info) {
			return nil
		}
		return apperrors.Forbidden(msg)
	}
}

// RequireRoles checks the roles listed under the "roles" option of the
// route against the roles of the identity. A route without the option is
// open to any identity.
//
//	users := app.NewRouter("/admin", app.Guards(app.RequireRoles(rolesOf)), app.Opt(app.OptRoles, []string{"admin"}))
func RequireRoles(rolesOf func(identity any) []string) Guard {
	return func(c *Context, info *route.Info) error {
		id := c.Identity()
		if id == nil {
			return apperrors.Unauthorized("")
		}
		want, _ := info.Opt(OptRoles)
		required, _ := want.([]string)
		if len(required) == 0 {
			return nil
		}
		have := rolesOf(id)
		for _, r := range required {
			if slices.Contains(have, r) {
				return nil
			}
		}
		return apperrors.Forbidden("missing role")
	}
}
