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

package validation

import "context"

// SelfValidator is implemented by values that check their own invariants.
// It runs after tag validation.
//
//	func (u *CreateUser) Validate() error {
//	    if u.Password == u.Name {
//	        return errors.New("password must differ from name")
//	    }
//	    return nil
//	}
type SelfValidator interface {
	Validate() error
}

// ContextValidator is like [SelfValidator] but receives the request context.
// It is preferred when a value implements both.
type ContextValidator interface {
	ValidateContext(context.Context) error
}
