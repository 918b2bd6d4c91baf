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

//go:build !integration

package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimple_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		formatter  *Simple
		err        error
		wantStatus int
		wantError  string
		wantCode   string
	}{
		{
			name:       "plain error is hidden",
			formatter:  NewSimple(),
			err:        &testError{message: "something went wrong"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal Server Error",
		},
		{
			name:       "debug shows plain error",
			formatter:  &Simple{Debug: true},
			err:        &testError{message: "something went wrong"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "something went wrong",
		},
		{
			name:       "error with code",
			formatter:  NewSimple(),
			err:        &testErrorWithCode{message: "validation failed", code: "validation_error"},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal Server Error",
			wantCode:   "validation_error",
		},
		{
			name:       "unauthorized",
			formatter:  NewSimple(),
			err:        Unauthorized(""),
			wantStatus: http.StatusUnauthorized,
			wantError:  "authentication required",
			wantCode:   "unauthorized",
		},
		{
			name: "custom status resolver",
			formatter: &Simple{
				StatusResolver: func(error) int { return http.StatusTeapot },
			},
			err:        &testError{message: "test"},
			wantStatus: http.StatusTeapot,
			wantError:  "test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			response := tt.formatter.Format(req, tt.err)

			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, "application/json; charset=utf-8", response.ContentType)

			body, ok := response.Body.(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tt.wantError, body["error"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
			} else {
				assert.NotContains(t, body, "code")
			}
		})
	}
}

func TestSimple_Details(t *testing.T) {
	t.Parallel()

	err := &testErrorWithDetailsSlice{message: "bad input", details: []map[string]any{{"field": "email"}}}
	req := httptest.NewRequest(http.MethodPost, "/users", nil)

	response := NewSimple().Format(req, WithStatus(err, http.StatusUnprocessableEntity))
	assert.Equal(t, http.StatusUnprocessableEntity, response.Status)

	data, mErr := json.Marshal(response.Body)
	require.NoError(t, mErr)
	assert.JSONEq(t, `{"error":"bad input","details":[{"field":"email"}]}`, string(data))
}
