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

// Package compression compresses response bodies with brotli or gzip,
// chosen from the request's Accept-Encoding.
//
//	handler = compression.New(
//	    compression.WithMinSize(512),
//	    compression.WithExcludePaths("/metrics"),
//	)(handler)
//
// Bodies shorter than the minimum size are sent as is. Responses with
// status 204, 206 or 304, HEAD requests, and streaming or already
// compressed content types are never compressed.
package compression

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	gzipLevel    int
	brotliLevel  int
	minSize      int
	enableGzip   bool
	enableBrotli bool
	excludePaths map[string]bool
	excludeTypes []string
}

// WithGzipLevel sets the gzip level (gzip.HuffmanOnly to gzip.BestCompression).
func WithGzipLevel(level int) Option {
	return func(c *config) { c.gzipLevel = max(gzip.HuffmanOnly, min(level, gzip.BestCompression)) }
}

// WithBrotliLevel sets the brotli level, clamped to [0, 11]. Default: 4.
func WithBrotliLevel(level int) Option {
	return func(c *config) { c.brotliLevel = max(0, min(level, 11)) }
}

// WithGzipDisabled leaves brotli as the only encoding.
func WithGzipDisabled() Option {
	return func(c *config) { c.enableGzip = false }
}

// WithBrotliDisabled leaves gzip as the only encoding.
func WithBrotliDisabled() Option {
	return func(c *config) { c.enableBrotli = false }
}

// WithMinSize sets the smallest body, in bytes, worth compressing.
// Default: 256.
func WithMinSize(n int) Option {
	return func(c *config) { c.minSize = max(0, n) }
}

// WithExcludePaths disables compression for exact request paths.
func WithExcludePaths(paths ...string) Option {
	return func(c *config) {
		for _, p := range paths {
			c.excludePaths[p] = true
		}
	}
}

// WithExcludeContentTypes disables compression for content types containing
// any of types.
func WithExcludeContentTypes(types ...string) Option {
	return func(c *config) {
		for _, t := range types {
			c.excludeTypes = append(c.excludeTypes, strings.ToLower(t))
		}
	}
}

// encoder is implemented by *gzip.Writer and *brotli.Writer.
type encoder interface {
	io.WriteCloser
	Reset(w io.Writer)
	Flush() error
}

// New returns the compression middleware.
func New(opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		gzipLevel:    gzip.DefaultCompression,
		brotliLevel:  4,
		minSize:      256,
		enableGzip:   true,
		enableBrotli: true,
		excludePaths: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	pools := map[string]*sync.Pool{
		"gzip": {New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, cfg.gzipLevel)
			return w
		}},
		"br": {New: func() any { return brotli.NewWriterLevel(io.Discard, cfg.brotliLevel) }},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || cfg.excludePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Accept-Encoding")
			enc := chooseEncoding(r.Header.Get("Accept-Encoding"), cfg)
			if enc == "" {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{ResponseWriter: w, cfg: cfg, encoding: enc, pool: pools[enc]}
			defer cw.finish()
			next.ServeHTTP(cw, r)
		})
	}
}

// compressWriter buffers the body until it reaches the minimum size, then
// commits to compressing it. Shorter bodies are written unchanged.
type compressWriter struct {
	http.ResponseWriter
	cfg      *config
	encoding string
	pool     *sync.Pool

	status   int
	buf      []byte
	decided  bool
	compress bool
	enc      encoder
}

func (cw *compressWriter) WriteHeader(code int) {
	if cw.status != 0 {
		return
	}
	cw.status = code
	if skipStatus(code) || skipContentType(cw.Header(), cw.cfg.excludeTypes) {
		_ = cw.decide(false)
	}
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.decided {
		if cw.compress {
			return cw.enc.Write(b)
		}
		return cw.ResponseWriter.Write(b)
	}
	cw.buf = append(cw.buf, b...)
	if len(cw.buf) >= cw.cfg.minSize {
		if err := cw.decide(true); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

// Flush commits to compression and flushes the encoder and the connection.
func (cw *compressWriter) Flush() {
	if cw.status == 0 {
		cw.WriteHeader(http.StatusOK)
	}
	if !cw.decided {
		_ = cw.decide(true)
	}
	if cw.compress {
		_ = cw.enc.Flush()
	}
	_ = http.NewResponseController(cw.ResponseWriter).Flush()
}

func (cw *compressWriter) Unwrap() http.ResponseWriter { return cw.ResponseWriter }

// decide sends the header and any buffered body.
func (cw *compressWriter) decide(compress bool) error {
	cw.decided, cw.compress = true, compress
	if compress {
		h := cw.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", cw.encoding)
		cw.enc = cw.pool.Get().(encoder)
		cw.enc.Reset(cw.ResponseWriter)
	}
	cw.ResponseWriter.WriteHeader(cw.status)

	if len(cw.buf) == 0 {
		return nil
	}
	var err error
	if compress {
		_, err = cw.enc.Write(cw.buf)
	} else {
		_, err = cw.ResponseWriter.Write(cw.buf)
	}
	cw.buf = nil
	return err
}

// finish writes out a body that stayed below the minimum size, or closes
// the encoder and returns it to its pool.
func (cw *compressWriter) finish() {
	if !cw.decided {
		if cw.status != 0 {
			_ = cw.decide(false)
		}
		return
	}
	if cw.compress {
		_ = cw.enc.Close()
		cw.enc.Reset(io.Discard)
		cw.pool.Put(cw.enc)
		cw.enc = nil
	}
}

func skipStatus(code int) bool {
	return code < http.StatusOK ||
		code == http.StatusNoContent ||
		code == http.StatusPartialContent ||
		code == http.StatusNotModified
}

func skipContentType(h http.Header, excluded []string) bool {
	if h.Get("Content-Encoding") != "" {
		return true
	}
	ct := strings.ToLower(h.Get("Content-Type"))
	if ct == "" {
		return false
	}
	if strings.HasPrefix(ct, "text/event-stream") ||
		strings.HasPrefix(ct, "application/grpc") ||
		strings.HasPrefix(ct, "application/octet-stream") ||
		strings.HasPrefix(ct, "image/") ||
		strings.HasPrefix(ct, "video/") {
		return true
	}
	for _, t := range excluded {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}

// chooseEncoding picks br or gzip by q-value, preferring br on ties.
// A wildcard applies to codings not listed explicitly.
func chooseEncoding(header string, cfg *config) string {
	if header == "" {
		return ""
	}
	br, gz, star := -1.0, -1.0, -1.0
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			q = parsed
		}
		switch strings.ToLower(strings.TrimSpace(coding)) {
		case "br":
			br = q
		case "gzip", "x-gzip":
			gz = q
		case "*":
			star = q
		}
	}
	if br < 0 {
		br = star
	}
	if gz < 0 {
		gz = star
	}

	switch {
	case cfg.enableBrotli && br > 0 && (br >= gz || !cfg.enableGzip):
		return "br"
	case cfg.enableGzip && gz > 0:
		return "gzip"
	}
	return ""
}
