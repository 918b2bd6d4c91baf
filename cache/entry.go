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

package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Entry is a cached response.
type Entry struct {
	Status   int         `msgpack:"s"`
	Header   http.Header `msgpack:"h"`
	Body     []byte      `msgpack:"b"`
	StoredAt time.Time   `msgpack:"t"`
}

// Key returns the default cache key of r: the path followed by the query
// with keys sorted, so ?b=2&a=1 and ?a=1&b=2 share an entry.
func Key(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.Query().Encode()
}

// Load fetches and decodes the entry at key. A miss returns (nil, nil).
func Load(ctx context.Context, s Store, key string) (*Entry, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil, nil //nolint:nilnil // a miss is not an error
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err = msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("cache: decode entry %q: %w", key, err)
	}
	return &e, nil
}

// Save encodes e and stores it at key.
func Save(ctx context.Context, s Store, key string, e *Entry, ttl time.Duration) error {
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now()
	}
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: encode entry %q: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}
