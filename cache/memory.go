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
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process [Store] backed by go-cache.
type Memory struct {
	db *gocache.Cache
}

// NewMemory returns a Memory store. Expired entries are purged every
// cleanup interval; a non-positive cleanup disables the janitor.
func NewMemory(defaultTTL, cleanup time.Duration) *Memory {
	if defaultTTL == 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &Memory{db: gocache.New(defaultTTL, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := m.db.Get(key); ok {
		return v.([]byte), nil
	}
	return nil, ErrMiss
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	switch {
	case ttl == 0:
		ttl = gocache.DefaultExpiration
	case ttl < 0:
		ttl = gocache.NoExpiration
	}
	m.db.Set(key, value, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.db.Delete(key)
	return nil
}

// Len returns the number of stored items, including expired ones not yet purged.
func (m *Memory) Len() int { return m.db.ItemCount() }

// Flush removes every entry.
func (m *Memory) Flush() { m.db.Flush() }
