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
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice.dev/lattice/cache"
	"lattice.dev/lattice/metrics"
)

func counting(calls *atomic.Int32) HandlerFunc {
	return func(*Context) (any, error) {
		return map[string]int32{"n": calls.Add(1)}, nil
	}
}

func TestCache_MemoryDefault(t *testing.T) {
	t.Parallel()

	rec := metrics.TestingRecorder(t)
	a := newTestApp(t, WithMetrics(rec))
	var calls atomic.Int32
	require.NoError(t, a.Register(
		Route([]string{http.MethodGet, http.MethodPost}, "/stock", counting(&calls), Cache(time.Minute)),
	))

	_, first := send(t, a, http.MethodGet, "/stock?b=2&a=1", "")
	resp, second := send(t, a, http.MethodGet, "/stock?a=1&b=2", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	send(t, a, http.MethodPost, "/stock", "")
	send(t, a, http.MethodPost, "/stock", "")
	assert.Equal(t, int32(3), calls.Load())

	lookups := metrics.Gather(t, rec, "lattice_cache_lookups_total")
	assert.InDelta(t, 1, metrics.Sum(lookups, map[string]string{"result": "hit"}), 0)
	assert.InDelta(t, 1, metrics.Sum(lookups, map[string]string{"result": "miss"}), 0)
}

func TestCache_KeyedByMediaType(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	var calls atomic.Int32
	require.NoError(t, a.Register(Get("/stock", counting(&calls), Cache(0))))

	send(t, a, http.MethodGet, "/stock", "")
	resp, _ := send(t, a, http.MethodGet, "/stock", "", "Accept", "application/msgpack")
	assert.Equal(t, "application/msgpack", resp.Header.Get("Content-Type"))
	send(t, a, http.MethodGet, "/stock", "", "Accept", "application/msgpack")
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_SkipsErrorsAndDisabledLayers(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, WithLayer(Cache(time.Minute)))
	var fails, plain atomic.Int32
	require.NoError(t, a.Register(
		Get("/flaky", func(*Context) (any, error) {
			fails.Add(1)
			return &Response{Status: http.StatusServiceUnavailable}, nil
		}),
		Get("/live", counting(&plain), Cache(-1)),
	))

	for range 2 {
		send(t, a, http.MethodGet, "/flaky", "")
		send(t, a, http.MethodGet, "/live", "")
	}
	assert.Equal(t, int32(2), fails.Load())
	assert.Equal(t, int32(2), plain.Load())
}

func TestCache_Redis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := newTestApp(t, WithCache(cache.NewRedis(client, "lattice:", time.Minute)))
	var calls atomic.Int32
	require.NoError(t, a.Register(Get("/stock", counting(&calls), Cache(30*time.Second))))

	send(t, a, http.MethodGet, "/stock", "")
	_, body := send(t, a, http.MethodGet, "/stock", "")
	assert.JSONEq(t, `{"n":1}`, body)
	assert.Equal(t, int32(1), calls.Load())

	key := "lattice:/stock#application/json"
	require.True(t, mr.Exists(key))
	assert.Equal(t, 30*time.Second, mr.TTL(key))

	mr.FastForward(time.Minute)
	send(t, a, http.MethodGet, "/stock", "")
	assert.Equal(t, int32(2), calls.Load())
}
