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

// Package ratelimit provides token bucket rate limiting per client key.
//
//	handler = ratelimit.New(
//	    ratelimit.WithRequestsPerSecond(50),
//	    ratelimit.WithBurst(10),
//	)(handler)
//
// Each key (client IP by default) gets its own golang.org/x/time/rate
// limiter. Limiters idle for longer than the TTL are evicted.
// Responses carry RateLimit-Limit and RateLimit-Remaining; rejected requests
// get 429 with Retry-After.
package ratelimit

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	lerrors "lattice.dev/lattice/errors"
	"lattice.dev/lattice/logging"
)

// ErrLimitExceeded is the cause of 429 responses.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// KeyFunc derives the limiter key of a request.
type KeyFunc func(r *http.Request) string

// Option configures the middleware.
type Option func(*config)

type config struct {
	rps        float64
	burst      int
	ttl        time.Duration
	key        KeyFunc
	formatter  lerrors.Formatter
	logger     *logging.Logger
	onExceeded func(w http.ResponseWriter, r *http.Request)
}

// WithRequestsPerSecond sets the refill rate. Default: 100.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *config) {
		if rps > 0 {
			c.rps = rps
		}
	}
}

// WithBurst sets the bucket size. Default: 20.
func WithBurst(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.burst = n
		}
	}
}

// WithLimiterTTL sets how long an idle limiter is kept. Default: 5 minutes.
func WithLimiterTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyFunc sets the key function. Default: client IP.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *config) { c.key = fn }
}

// WithFormatter sets the formatter of 429 responses.
func WithFormatter(f lerrors.Formatter) Option {
	return func(c *config) { c.formatter = f }
}

// WithLogger logs rejected requests at warn level.
func WithLogger(l *logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithHandler replaces the 429 response.
func WithHandler(fn func(w http.ResponseWriter, r *http.Request)) Option {
	return func(c *config) { c.onExceeded = fn }
}

// Limiter holds the per-key token buckets.
type Limiter struct {
	cfg      *config
	mu       sync.Mutex
	limiters *gocache.Cache
}

// NewLimiter creates a [Limiter].
func NewLimiter(opts ...Option) *Limiter {
	cfg := &config{
		rps:       100,
		burst:     20,
		ttl:       5 * time.Minute,
		key:       ClientIP,
		formatter: lerrors.NewRFC9457(""),
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Limiter{cfg: cfg, limiters: gocache.New(cfg.ttl, cfg.ttl)}
}

// New returns the rate limiting middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	return NewLimiter(opts...).Middleware
}

// Allow takes a token for key and reports the tokens left and, when denied,
// how long until the next token.
func (l *Limiter) Allow(key string, now time.Time) (ok bool, remaining int, retry time.Duration) {
	lim := l.get(key)
	ok = lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	remaining = max(int(math.Floor(tokens)), 0)
	if !ok {
		retry = time.Duration((1 - tokens) / l.cfg.rps * float64(time.Second))
	}
	return ok, remaining, retry
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.limiters.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.limiters.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(l.cfg.rps), l.cfg.burst)
	l.limiters.SetDefault(key, lim)
	return lim
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int { return l.limiters.ItemCount() }

// Middleware applies the limiter to next.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.cfg.key(r)
		ok, remaining, retry := l.Allow(key, time.Now())

		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(l.cfg.burst))
		h.Set("RateLimit-Remaining", strconv.Itoa(remaining))
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		l.cfg.logger.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path)
		if l.cfg.onExceeded != nil {
			l.cfg.onExceeded(w, r)
			return
		}
		_ = lerrors.Write(w, r, l.cfg.formatter, lerrors.WithStatus(ErrLimitExceeded, http.StatusTooManyRequests))
	})
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
