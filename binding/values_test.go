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

package binding

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagination struct {
	Limit  int `query:"limit" default:"20"`
	Offset int `query:"offset"`
}

type listQuery struct {
	pagination
	Sort    string        `query:"sort" default:"name"`
	Tags    []string      `query:"tag"`
	IDs     []int         `query:"id"`
	Since   time.Time     `query:"since"`
	Timeout time.Duration `query:"timeout"`
	Active  *bool         `query:"active"`
	Owner   uuid.UUID     `query:"owner"`
	Ignored string
}

func TestQuery_Binds(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	values := url.Values{
		"offset":  {"40"},
		"tag":     {"a", "b"},
		"id":      {"1,2,3"},
		"since":   {"2024-05-01T10:00:00Z"},
		"timeout": {"1.5s"},
		"active":  {"true"},
		"owner":   {owner.String()},
	}

	q, err := Query[listQuery](values)
	require.NoError(t, err)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, 40, q.Offset)
	assert.Equal(t, "name", q.Sort)
	assert.Equal(t, []string{"a", "b"}, q.Tags)
	assert.Equal(t, []int{1, 2, 3}, q.IDs)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), q.Since.UTC())
	assert.Equal(t, 1500*time.Millisecond, q.Timeout)
	require.NotNil(t, q.Active)
	assert.True(t, *q.Active)
	assert.Equal(t, owner, q.Owner)
}

func TestQuery_EmptyValueIsPresent(t *testing.T) {
	t.Parallel()

	q, err := Query[listQuery](url.Values{"sort": {""}})
	require.NoError(t, err)
	assert.Empty(t, q.Sort)
}

func TestQuery_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	_, err := Query[listQuery](url.Values{"limit": {"ten"}, "owner": {"nope"}, "id": {"1,x"}})

	var multi *MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 3)
	details := multi.Details()
	assert.Contains(t, details, "limit")
	assert.Contains(t, details, "owner")
	assert.Contains(t, details, "id")

	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, SourceQuery, bindErr.Source)
}

func TestQuery_Overflow(t *testing.T) {
	t.Parallel()

	type small struct {
		N int8 `query:"n"`
	}
	_, err := Query[small](url.Values{"n": {"300"}})
	require.ErrorContains(t, err, "overflows")
}

func TestHeaderAndCookie(t *testing.T) {
	t.Parallel()

	type headers struct {
		RequestID string `header:"x-request-id"`
		Retries   uint   `header:"X-Retries" default:"1"`
	}
	h := http.Header{}
	h.Set("X-Request-Id", "abc")

	got, err := Header[headers](h)
	require.NoError(t, err)
	assert.Equal(t, headers{RequestID: "abc", Retries: 1}, got)

	type session struct {
		ID string `cookie:"session_id"`
	}
	s, err := Cookie[session]([]*http.Cookie{{Name: "session_id", Value: "s1"}, {Name: "session_id", Value: "s2"}})
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
}

func TestValues_PathMap(t *testing.T) {
	t.Parallel()

	type params struct {
		ID int64 `path:"id"`
	}
	var p params
	require.NoError(t, Values(MapGetter{"id": "42"}, SourcePath, &p))
	assert.Equal(t, int64(42), p.ID)
}

func TestValues_BadTarget(t *testing.T) {
	t.Parallel()

	var n int
	require.ErrorIs(t, Values(MapGetter{}, SourcePath, &n), ErrUnsupportedType)
	require.ErrorIs(t, Values(MapGetter{}, SourcePath, listQuery{}), ErrUnsupportedType)
}
