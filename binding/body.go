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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"lattice.dev/lattice/validation"
)

// Media types with built-in decoders.
const (
	MediaJSON    = "application/json"
	MediaMsgPack = "application/msgpack"
	MediaYAML    = "application/yaml"
	MediaTOML    = "application/toml"
)

// DefaultMaxBytes bounds request bodies unless [WithMaxBytes] is given.
const DefaultMaxBytes = 4 << 20

// Decoder decodes a request body into v.
type Decoder interface {
	Decode(r io.Reader, v any, strict bool) error
}

// DecoderFunc adapts a function to [Decoder].
type DecoderFunc func(r io.Reader, v any, strict bool) error

func (f DecoderFunc) Decode(r io.Reader, v any, strict bool) error { return f(r, v, strict) }

// Body decodes request bodies by Content-Type and validates the result.
// A Body is immutable after [NewBody] and safe for concurrent use.
type Body struct {
	decoders  map[string]Decoder
	maxBytes  int64
	strict    bool
	validator *validation.Validator
}

// BodyOption configures a [Body].
type BodyOption func(*Body)

// WithDecoder registers or replaces the decoder for a media type.
func WithDecoder(mediaType string, d Decoder) BodyOption {
	return func(b *Body) { b.decoders[strings.ToLower(mediaType)] = d }
}

// WithMaxBytes limits body size; zero or negative disables the limit.
func WithMaxBytes(n int64) BodyOption {
	return func(b *Body) { b.maxBytes = n }
}

// WithStrict rejects fields not present in the target type.
func WithStrict() BodyOption {
	return func(b *Body) { b.strict = true }
}

// WithValidator validates every decoded value with v.
func WithValidator(v *validation.Validator) BodyOption {
	return func(b *Body) { b.validator = v }
}

// NewBody returns a Body with JSON, MessagePack, YAML and TOML decoders.
// MessagePack and YAML also accept their legacy "x-" media types.
func NewBody(opts ...BodyOption) *Body {
	b := &Body{
		decoders: map[string]Decoder{
			MediaJSON:               DecoderFunc(decodeJSON),
			MediaMsgPack:            DecoderFunc(decodeMsgPack),
			"application/x-msgpack": DecoderFunc(decodeMsgPack),
			MediaYAML:               DecoderFunc(decodeYAML),
			"application/x-yaml":    DecoderFunc(decodeYAML),
			"text/yaml":             DecoderFunc(decodeYAML),
			MediaTOML:               DecoderFunc(decodeTOML),
		},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MediaTypes lists the accepted media types, sorted.
func (b *Body) MediaTypes() []string {
	out := make([]string, 0, len(b.decoders))
	for mt := range b.decoders {
		out = append(out, mt)
	}
	slices.Sort(out)
	return out
}

// Read returns the body of r, enforcing the size limit.
func (b *Body) Read(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	reader := io.Reader(r.Body)
	if b.maxBytes > 0 {
		reader = io.LimitReader(r.Body, b.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &BindError{Source: SourceBody, Err: err}
	}
	if b.maxBytes > 0 && int64(len(data)) > b.maxBytes {
		return nil, &BindError{Source: SourceBody, Err: ErrBodyTooLarge}
	}
	return data, nil
}

// Decode decodes data of the given Content-Type into out and validates it.
// An empty contentType is treated as JSON.
func (b *Body) Decode(ctx context.Context, contentType string, data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &BindError{Source: SourceBody, Err: ErrEmptyBody}
	}

	mediaType := MediaJSON
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return &BindError{Source: SourceBody, Err: fmt.Errorf("%w: %q", ErrUnsupportedMediaType, contentType)}
		}
		mediaType = mt
	}
	dec, ok := b.decoders[mediaType]
	if !ok {
		return &BindError{Source: SourceBody, Err: fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)}
	}

	if err := dec.Decode(bytes.NewReader(data), out, b.strict); err != nil {
		return &BindError{Source: SourceBody, Err: err}
	}
	if b.validator != nil {
		return b.validator.Validate(ctx, out)
	}
	return nil
}

// DecodeRequest reads and decodes the body of r.
func (b *Body) DecodeRequest(r *http.Request, out any) error {
	data, err := b.Read(r)
	if err != nil {
		return err
	}
	return b.Decode(r.Context(), r.Header.Get("Content-Type"), data, out)
}

// As decodes data into a new T.
func As[T any](ctx context.Context, b *Body, contentType string, data []byte) (T, error) {
	var out T
	err := b.Decode(ctx, contentType, data, &out)
	return out, err
}

func decodeJSON(r io.Reader, v any, strict bool) error {
	dec := json.NewDecoder(r)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func decodeMsgPack(r io.Reader, v any, strict bool) error {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	dec.DisallowUnknownFields(strict)
	return dec.Decode(v)
}

func decodeYAML(r io.Reader, v any, strict bool) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(strict)
	return dec.Decode(v)
}

func decodeTOML(r io.Reader, v any, strict bool) error {
	md, err := toml.NewDecoder(r).Decode(v)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); strict && len(undecoded) > 0 {
		return fmt.Errorf("unknown field %q", undecoded[0].String())
	}
	return nil
}
