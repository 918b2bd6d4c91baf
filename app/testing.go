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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"
)

// TestOption configures [App.Test].
type TestOption func(*testConfig)

type testConfig struct {
	timeout time.Duration
	ctx     context.Context //nolint:containedctx // test configuration
	wait    bool
}

// WithTimeout sets the request timeout. Use -1 for none.
func WithTimeout(d time.Duration) TestOption {
	return func(cfg *testConfig) { cfg.timeout = d }
}

// WithContext runs the request with ctx.
func WithContext(ctx context.Context) TestOption {
	return func(cfg *testConfig) { cfg.ctx = ctx }
}

// WaitBackground makes [App.Test] return only after the after_response
// hooks started by the request finished.
func WaitBackground() TestOption {
	return func(cfg *testConfig) { cfg.wait = true }
}

// Test serves req without a network listener and returns the recorded
// response.
//
//	resp, err := a.Test(httptest.NewRequest(http.MethodGet, "/items/3", nil))
//	require.NoError(t, err)
//	assert.Equal(t, http.StatusOK, resp.StatusCode)
func (a *App) Test(req *http.Request, opts ...TestOption) (*http.Response, error) {
	cfg := &testConfig{timeout: time.Second, ctx: context.Background()}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := cfg.ctx
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	done := make(chan any, 1)
	go func() {
		defer func() { done <- recover() }()
		a.ServeHTTP(rec, req)
	}()

	select {
	case v := <-done:
		if v != nil {
			return nil, fmt.Errorf("request panicked: %v", v)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("request timeout: %w", ctx.Err())
	}
	if cfg.wait {
		a.background.Wait()
	}
	return rec.Result(), nil
}

// TestJSON sends body encoded as JSON.
func (a *App) TestJSON(method, path string, body any, opts ...TestOption) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode JSON body: %w", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.Test(req, opts...)
}

// ExpectJSON checks the status and content type of resp and decodes its
// body into out.
//
//	var item Item
//	app.ExpectJSON(t, resp, http.StatusOK, &item)
func ExpectJSON(t testingT, resp *http.Response, status int, out any) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	defer resp.Body.Close()
	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Errorf("expected status %d, got %d: %s", status, resp.StatusCode, body)
		return
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected Content-Type application/json, got %s", ct)
		return
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("read response body: %v", err)
		return
	}
	if err := json.Unmarshal(body, out); err != nil {
		t.Errorf("decode JSON: %v\nBody: %s", err, body)
	}
}

type testingT interface {
	Errorf(format string, args ...any)
}
