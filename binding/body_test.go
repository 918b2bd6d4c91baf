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
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"lattice.dev/lattice/validation"
)

type createOrder struct {
	SKU      string `json:"sku" yaml:"sku" toml:"sku" validate:"required"`
	Quantity int    `json:"quantity" yaml:"quantity" toml:"quantity" validate:"min=1"`
}

func TestBody_DecodeByMediaType(t *testing.T) {
	t.Parallel()

	packed, err := msgpack.Marshal(map[string]any{"sku": "A1", "quantity": 3})
	require.NoError(t, err)

	tests := []struct {
		name        string
		contentType string
		body        []byte
	}{
		{"json", "application/json; charset=utf-8", []byte(`{"sku":"A1","quantity":3}`)},
		{"default json", "", []byte(`{"sku":"A1","quantity":3}`)},
		{"msgpack", "application/msgpack", packed},
		{"legacy msgpack", "application/x-msgpack", packed},
		{"yaml", "application/yaml", []byte("sku: A1\nquantity: 3\n")},
		{"toml", "application/toml", []byte("sku = \"A1\"\nquantity = 3\n")},
	}
	body := NewBody()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := As[createOrder](context.Background(), body, tt.contentType, tt.body)
			require.NoError(t, err)
			assert.Equal(t, createOrder{SKU: "A1", Quantity: 3}, got)
		})
	}
}

func TestBody_Errors(t *testing.T) {
	t.Parallel()

	body := NewBody()
	var out createOrder

	err := body.Decode(context.Background(), "text/csv", []byte("a,b"), &out)
	require.ErrorIs(t, err, ErrUnsupportedMediaType)

	err = body.Decode(context.Background(), "application/json", []byte("  "), &out)
	require.ErrorIs(t, err, ErrEmptyBody)

	err = body.Decode(context.Background(), "application/json", []byte(`{"sku":`), &out)
	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, SourceBody, bindErr.Source)

	err = body.Decode(context.Background(), "application/json", []byte(`{"sku":"A"} {"sku":"B"}`), &out)
	require.Error(t, err)
}

func TestBody_Strict(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"sku":"A1","quantity":1,"extra":true}`)

	var loose createOrder
	require.NoError(t, NewBody().Decode(context.Background(), MediaJSON, payload, &loose))

	var strict createOrder
	require.Error(t, NewBody(WithStrict()).Decode(context.Background(), MediaJSON, payload, &strict))

	var strictTOML createOrder
	err := NewBody(WithStrict()).Decode(context.Background(), MediaTOML, []byte("sku = \"A\"\nquantity = 1\ncolor = \"red\"\n"), &strictTOML)
	require.ErrorContains(t, err, `unknown field "color"`)
}

func TestBody_Validation(t *testing.T) {
	t.Parallel()

	body := NewBody(WithValidator(validation.MustNew()))
	_, err := As[createOrder](context.Background(), body, MediaJSON, []byte(`{"quantity":0}`))

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"sku": "is required", "quantity": "must be at least 1"}, verr.Details())
}

func TestBody_ReadLimit(t *testing.T) {
	t.Parallel()

	body := NewBody(WithMaxBytes(8))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sku":"too long"}`))
	_, err := body.Read(req)
	require.ErrorIs(t, err, ErrBodyTooLarge)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	data, err := body.Read(req)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestBody_DecodeRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("sku: B2\nquantity: 5\n"))
	req.Header.Set("Content-Type", "application/x-yaml")

	var out createOrder
	require.NoError(t, NewBody().DecodeRequest(req, &out))
	assert.Equal(t, "B2", out.SKU)
}

func TestBody_CustomDecoder(t *testing.T) {
	t.Parallel()

	body := NewBody(WithDecoder("Text/Plain", DecoderFunc(func(r io.Reader, v any, _ bool) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		*(v.(*string)) = strings.ToUpper(string(data))
		return nil
	})))
	assert.Contains(t, body.MediaTypes(), "text/plain")

	var out string
	require.NoError(t, body.Decode(context.Background(), "text/plain", []byte("hi"), &out))
	assert.Equal(t, "HI", out)
}
