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

package route

// Info is read-only metadata about a registered handler.
// It is handed to guards and to route introspection consumers such as
// OpenAPI generators and route table printers.
type Info struct {
	Method      string         // HTTP method
	Path        string         // Canonical template, e.g. /items/{id:int}
	OpenAPIPath string         // Template without types, e.g. /items/{id}
	Name        string         // Handler name
	Params      []Param        // Path parameters in order
	Tags        []string       // Tags collected from the layer chain
	Guards      int            // Number of effective guards
	Deps        []string       // Dependency names the handler requires
	Opts        map[string]any // Effective options bag
	Blocking    bool           // Handler is offloaded to the worker pool
	Cached      bool           // Responses are cached
}

// Opt returns an option value from the effective options bag.
func (i *Info) Opt(key string) (any, bool) {
	v, ok := i.Opts[key]
	return v, ok
}
