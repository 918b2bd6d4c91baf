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

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

func request(remote string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remote
	return r
}

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()
	l := NewLimiter(WithRequestsPerSecond(1), WithBurst(2))
	now := time.Now()

	allowed, remaining, _ := l.Allow("a", now)
	require.True(t, allowed)
	assert.Equal(t, 1, remaining)

	allowed, remaining, _ = l.Allow("a", now)
	require.True(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, _, retry := l.Allow("a", now)
	require.False(t, allowed)
	assert.InDelta(t, time.Second, retry, float64(10*time.Millisecond))

	allowed, _, _ = l.Allow("b", now)
	assert.True(t, allowed, "keys are independent")

	allowed, _, _ = l.Allow("a", now.Add(1100*time.Millisecond))
	assert.True(t, allowed, "bucket refills")
	assert.Equal(t, 2, l.Len())
}

func TestMiddleware_RejectsWith429(t *testing.T) {
	t.Parallel()
	h := New(WithRequestsPerSecond(0.5), WithBurst(1))(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request("10.0.0.1:5000"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request("10.0.0.2:5000"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddleware_CustomKeyAndHandler(t *testing.T) {
	t.Parallel()
	h := New(
		WithBurst(1),
		WithRequestsPerSecond(0.1),
		WithKeyFunc(func(r *http.Request) string { return r.Header.Get("X-API-Key") }),
		WithHandler(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }),
	)(ok)

	for i, want := range []int{http.StatusNoContent, http.StatusServiceUnavailable} {
		r := request("10.0.0.1:1")
		r.Header.Set("X-API-Key", "k1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, want, rec.Code, "request %d", i)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "192.0.2.1", ClientIP(request("192.0.2.1:1234")))
	assert.Equal(t, "::1", ClientIP(request("[::1]:80")))
	assert.Equal(t, "pipe", ClientIP(request("pipe")))
}
