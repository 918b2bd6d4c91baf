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

// Package requestid assigns every request an identifier, echoes it in a
// response header and stores it in the request context.
//
//	handler = requestid.New()(handler)
//	id := requestid.Get(r.Context())
//
// IDs are UUIDv4 by default; [WithULID] switches to lexicographically
// sortable ULIDs.
package requestid

import (
	"context"
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultHeader carries the request ID in both directions.
const DefaultHeader = "X-Request-ID"

// maxClientIDLength bounds client-supplied IDs.
const maxClientIDLength = 128

type ctxKey struct{}

// Option configures the middleware.
type Option func(*config)

type config struct {
	header        string
	generator     func() string
	allowClientID bool
}

// WithHeader sets the header name.
func WithHeader(name string) Option {
	return func(c *config) { c.header = name }
}

// WithGenerator replaces the UUIDv4 generator.
func WithGenerator(fn func() string) Option {
	return func(c *config) { c.generator = fn }
}

// WithULID generates time-ordered ULIDs instead of UUIDs.
func WithULID() Option {
	return func(c *config) { c.generator = NewULID }
}

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a new ULID. IDs generated within the same millisecond
// are strictly increasing.
func NewULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// WithAllowClientID controls whether an incoming header value is reused.
// Default: true.
func WithAllowClientID(allow bool) Option {
	return func(c *config) { c.allowClientID = allow }
}

// New returns the request ID middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{header: DefaultHeader, generator: uuid.NewString, allowClientID: true}
	for _, opt := range opts {
		opt(cfg)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cfg.allowClientID {
				id = r.Header.Get(cfg.header)
				if !validClientID(id) {
					id = ""
				}
			}
			if id == "" {
				id = cfg.generator()
			}
			w.Header().Set(cfg.header, id)
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Get returns the request ID stored in ctx, or "".
func Get(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// validClientID accepts short printable ASCII values so that IDs can be
// echoed and logged safely.
func validClientID(id string) bool {
	if id == "" || len(id) > maxClientIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
