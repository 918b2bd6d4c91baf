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

package compression

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = strings.Repeat(`{"note":"lattice"}`, 64)

func serve(t *testing.T, h http.Handler, method, path, accept string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if accept != "" {
		req.Header.Set("Accept-Encoding", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func body(status int, contentType, data string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", "999")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, data)
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var r io.Reader
	switch rec.Header().Get("Content-Encoding") {
	case "gzip":
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		r = zr
	case "br":
		r = brotli.NewReader(rec.Body)
	default:
		r = rec.Body
	}
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestCompression_Encodings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		opts   []Option
		accept string
		want   string
	}{
		{name: "brotli preferred", accept: "gzip, br", want: "br"},
		{name: "gzip by quality", accept: "br;q=0.5, gzip", want: "gzip"},
		{name: "brotli disabled", opts: []Option{WithBrotliDisabled()}, accept: "br, gzip", want: "gzip"},
		{name: "gzip disabled", opts: []Option{WithGzipDisabled()}, accept: "gzip;q=1, br;q=0.1", want: "br"},
		{name: "wildcard", accept: "*", want: "br"},
		{name: "explicit refusal", accept: "gzip;q=0, br;q=0", want: ""},
		{name: "identity only", accept: "identity", want: ""},
		{name: "no header", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := New(tt.opts...)(body(http.StatusOK, "application/json", payload))
			rec := serve(t, h, http.MethodGet, "/notes", tt.accept)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Encoding"))
			assert.Equal(t, payload, decode(t, rec))
			if tt.want != "" {
				assert.Empty(t, rec.Header().Get("Content-Length"))
				assert.Less(t, rec.Body.Len(), len(payload))
			}
		})
	}
}

func TestCompression_Skipped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		method  string
		path    string
		status  int
		ctype   string
		payload string
	}{
		{name: "below minimum size", status: http.StatusOK, ctype: "application/json", payload: `{"ok":true}`},
		{name: "no content", status: http.StatusNoContent, ctype: "application/json"},
		{name: "event stream", status: http.StatusOK, ctype: "text/event-stream", payload: payload},
		{name: "image", status: http.StatusOK, ctype: "image/png", payload: payload},
		{name: "excluded type", opts: []Option{WithExcludeContentTypes("application/x-msgpack")}, status: http.StatusOK, ctype: "application/x-msgpack", payload: payload},
		{name: "excluded path", opts: []Option{WithExcludePaths("/metrics")}, path: "/metrics", status: http.StatusOK, ctype: "text/plain", payload: payload},
		{name: "head", method: http.MethodHead, status: http.StatusOK, ctype: "application/json", payload: payload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			method, path := tt.method, tt.path
			if method == "" {
				method = http.MethodGet
			}
			if path == "" {
				path = "/notes"
			}
			h := New(tt.opts...)(body(tt.status, tt.ctype, tt.payload))
			rec := serve(t, h, method, path, "br, gzip")

			assert.Equal(t, tt.status, rec.Code)
			assert.Empty(t, rec.Header().Get("Content-Encoding"))
			if method != http.MethodHead {
				assert.Equal(t, tt.payload, rec.Body.String())
			}
		})
	}
}

func TestCompression_MinSizeAcrossWrites(t *testing.T) {
	t.Parallel()

	h := New(WithMinSize(100))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		for range 10 {
			_, _ = io.WriteString(w, strings.Repeat("a", 20))
		}
	}))
	rec := serve(t, h, http.MethodGet, "/", "gzip")

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, strings.Repeat("a", 200), decode(t, rec))
	assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")
}

func TestCompression_Flush(t *testing.T) {
	t.Parallel()

	h := New()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "partial")
		require.NoError(t, http.NewResponseController(w).Flush())
		_, _ = io.WriteString(w, " rest")
	}))
	rec := serve(t, h, http.MethodGet, "/", "br")

	assert.True(t, rec.Flushed)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "partial rest", decode(t, rec))
}
