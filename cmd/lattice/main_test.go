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

package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice.dev/lattice/app"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoutesCommand(t *testing.T) {
	out, err := run(t, "routes", "--env-prefix", "LATTICE_ROUTES_TEST_")
	require.NoError(t, err)
	for _, want := range []string{"/api/v1/notes", "/api/v1/notes/{id:uuid}", "/healthz", "createNote", "deleteNote", "guarded", "cached"} {
		assert.Contains(t, out, want)
	}
}

func TestRoutesCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lattice.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: moon\n"), 0o600))

	_, err := run(t, "routes", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load settings")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "lattice "+version))
}

func notesApp(t *testing.T) *app.App {
	t.Helper()
	a, err := newNotesApp(app.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, a.Startup(context.Background()))
	return a
}

func call(t *testing.T, a *app.App, method, target, body string, header ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := a.Test(req, app.WaitBackground())
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestNotes_Lifecycle(t *testing.T) {
	t.Parallel()
	a := notesApp(t)

	resp, data := call(t, a, http.MethodPost, "/api/v1/notes", `{"title":"buy ink"}`, "X-Tenant", "acme")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var created note
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, "acme", created.Tenant)

	resp, data = call(t, a, http.MethodGet, "/api/v1/notes/"+created.ID.String(), "", "X-Tenant", "acme")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "buy ink")

	resp, _ = call(t, a, http.MethodGet, "/api/v1/notes/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "other tenants cannot see the note")

	var list []note
	_, data = call(t, a, http.MethodGet, "/api/v1/notes?limit=5", "", "X-Tenant", "acme")
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Len(t, list, 1)

	resp, _ = call(t, a, http.MethodDelete, "/api/v1/notes/"+created.ID.String(), "", "X-Tenant", "acme")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, a, http.MethodDelete, "/api/v1/notes/"+created.ID.String(), "",
		"X-Tenant", "acme", "Authorization", "Bearer "+apiKey)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = call(t, a, http.MethodGet, "/api/v1/notes/"+created.ID.String(), "", "X-Tenant", "acme")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(data), "note not found")
}

func TestNotes_CompressedListAndULIDs(t *testing.T) {
	t.Parallel()
	a := notesApp(t)

	for i := range 12 {
		resp, data := call(t, a, http.MethodPost, "/api/v1/notes", `{"title":"note `+strings.Repeat("x", i+10)+`"}`, "X-Tenant", "acme")
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
		_, err := ulid.ParseStrict(resp.Header.Get("X-Request-ID"))
		require.NoError(t, err)
	}

	resp, data := call(t, a, http.MethodGet, "/api/v1/notes", "", "X-Tenant", "acme", "Accept-Encoding", "gzip")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	var list []note
	require.NoError(t, json.Unmarshal(plain, &list))
	assert.Len(t, list, 12)
}

func TestNotes_Validation(t *testing.T) {
	t.Parallel()
	a := notesApp(t)

	resp, _ := call(t, a, http.MethodPost, "/api/v1/notes", `{"body":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, a, http.MethodGet, "/api/v1/notes/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, a, http.MethodGet, "/api/v1/notes?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNotes_StoreMissingBeforeStartup(t *testing.T) {
	t.Parallel()
	a, err := newNotesApp(app.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	resp, _ := call(t, a, http.MethodGet, "/api/v1/notes", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestNotes_Health(t *testing.T) {
	t.Parallel()
	a := notesApp(t)

	resp, data := call(t, a, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","version":"dev"}`, string(data))
}
