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
	"context"
	"errors"
	"fmt"
	"reflect"

	"lattice.dev/lattice/binding"
	"lattice.dev/lattice/route"
)

// DataArg is the input name of a decoded request body.
const DataArg = "data"

var errMissing = errors.New("required value is missing")

// Parameter is a declared query, header or cookie input.
type Parameter struct {
	Name     string         // Input name
	Source   binding.Source // Where the value is read from
	Key      string         // Key in the source, defaults to Name
	Type     route.ParamType
	Parse    func(raw string) (any, error) // Replaces Type when set
	Required bool
	Default  any  // Used when the value is absent
	Multi    bool // Bind every value as []any
}

// ParamOption configures a [Parameter].
type ParamOption func(*Parameter)

// Key reads the value from a differently named key.
func Key(key string) ParamOption { return func(p *Parameter) { p.Key = key } }

// Typed parses the value with t.
func Typed(t route.ParamType) ParamOption { return func(p *Parameter) { p.Type = t } }

// Parser parses the value with fn.
func Parser(fn func(raw string) (any, error)) ParamOption {
	return func(p *Parameter) { p.Parse = fn }
}

// Optional makes an absent value bind as nil.
func Optional() ParamOption { return func(p *Parameter) { p.Required = false } }

// Default binds v when the value is absent. It implies Optional.
func Default(v any) ParamOption {
	return func(p *Parameter) {
		p.Default = v
		p.Required = false
	}
}

// Multi binds all values of a repeated key.
func Multi() ParamOption { return func(p *Parameter) { p.Multi = true } }

// Query declares a query parameter. Declared on a handler it is an explicit
// input of that handler; declared on an outer layer it is validated for
// every handler below it.
func Query(name string, opts ...ParamOption) Option {
	return declare(binding.SourceQuery, name, opts)
}

// Header declares a header parameter. See [Query].
func Header(name string, opts ...ParamOption) Option {
	return declare(binding.SourceHeader, name, opts)
}

// Cookie declares a cookie parameter. See [Query].
func Cookie(name string, opts ...ParamOption) Option {
	return declare(binding.SourceCookie, name, opts)
}

func declare(src binding.Source, name string, opts []ParamOption) Option {
	return func(l *Layer) {
		p := &Parameter{Name: name, Source: src, Key: name, Required: true}
		for _, opt := range opts {
			opt(p)
		}
		if name == "" || p.Key == "" {
			l.fail(fmt.Errorf("%w: %s parameter without a name", ErrInvalidBinding, src))
			return
		}
		if _, ok := reserved[name]; ok {
			l.fail(fmt.Errorf("%w: %q is a reserved name", ErrInvalidBinding, name))
			return
		}
		if l.params == nil {
			l.params = make(map[string]*Parameter)
		}
		l.params[name] = p
		if l.kind == kindHandler {
			l.addInputs(name)
		}
	}
}

func (p *Parameter) bind(g binding.ValueGetter) (any, *binding.BindError) {
	if !g.Has(p.Key) {
		switch {
		case p.Default != nil:
			return p.Default, nil
		case !p.Required:
			return nil, nil
		}
		return nil, &binding.BindError{Source: p.Source, Field: p.Key, Err: errMissing}
	}

	if !p.Multi {
		raw := g.Get(p.Key)
		v, err := p.parse(raw)
		if err != nil {
			return nil, &binding.BindError{Source: p.Source, Field: p.Key, Value: raw, Err: err}
		}
		return v, nil
	}

	raws := g.GetAll(p.Key)
	out := make([]any, len(raws))
	for i, raw := range raws {
		v, err := p.parse(raw)
		if err != nil {
			return nil, &binding.BindError{Source: p.Source, Field: p.Key, Value: raw, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

func (p *Parameter) parse(raw string) (any, error) {
	if p.Parse != nil {
		return p.Parse(raw)
	}
	return p.Type.Parse(raw)
}

// bodySpec decodes the request body into the declared type.
type bodySpec struct {
	typ    reflect.Type
	decode func(ctx context.Context, b *binding.Body, contentType string, data []byte) (any, error)
}

// Data declares that the handler takes the request body decoded into T,
// bound to the input [DataArg]. The body is validated after decoding.
func Data[T any]() Option {
	return func(l *Layer) {
		if !l.handlerOnly("Data") {
			return
		}
		l.data = &bodySpec{
			typ: reflect.TypeFor[T](),
			decode: func(ctx context.Context, b *binding.Body, ct string, data []byte) (any, error) {
				return binding.As[T](ctx, b, ct, data)
			},
		}
		l.addInputs(DataArg)
	}
}
