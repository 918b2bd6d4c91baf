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

// Package route compiles path templates into typed, immutable route templates.
//
// A template is a sequence of slash separated segments. Each segment is either
// literal text or a typed parameter written as {name:type}:
//
//	/items/{id:int}
//	/users/{user_id:uuid}/posts
//	/files/{filepath:path}
//
// The type is optional and defaults to str. Supported types are str (alias
// string), int (alias integer), float, uuid, decimal, date, datetime, time,
// timedelta and path. A path parameter must be the last segment and consumes
// the remainder of the request path, slashes included.
//
// Templates are created once at registration time:
//
//	tpl, err := route.Compile("/items/{id:int}")
//	if err != nil {
//	    // errors.Is(err, route.ErrInvalidTemplate)
//	}
//
// Nested prefixes are composed with Combine, which rejects parameter name
// collisions between the prefix and the suffix.
//
// A trailing slash is significant: /items and /items/ are distinct templates.
package route
