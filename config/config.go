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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"

	"lattice.dev/lattice/config/codec"
	"lattice.dev/lattice/config/source"
)

// Source produces a configuration map. Keys are matched case-insensitively.
type Source interface {
	Load(ctx context.Context) (map[string]any, error)
}

// Validator is implemented by bound structs that check their own values.
type Validator interface {
	Validate() error
}

// Option configures a [Config].
type Option func(c *Config) error

// Config merges configuration from ordered sources; later sources override
// earlier ones. It is safe for concurrent use.
type Config struct {
	mu         sync.RWMutex
	values     map[string]any
	sources    []Source
	binding    any
	tagName    string
	validators []func(map[string]any) error
}

// WithSource appends a source.
func WithSource(src Source) Option {
	return func(c *Config) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		c.sources = append(c.sources, src)
		return nil
	}
}

// WithFile loads path, detecting the format from its extension.
// Environment variables in path are expanded.
func WithFile(path string) Option {
	return withFile(path, false)
}

// WithOptionalFile is like [WithFile] but a missing file is not an error.
func WithOptionalFile(path string) Option {
	return withFile(path, true)
}

func withFile(path string, optional bool) Option {
	return func(c *Config) error {
		path = os.ExpandEnv(path)
		typ, err := codec.Detect(path)
		if err != nil {
			return NewError("file", "detect-format", err)
		}
		return WithFileAs(path, typ, optional)(c)
	}
}

// WithFileAs loads path with an explicit codec type.
func WithFileAs(path string, typ codec.Type, optional bool) Option {
	return func(c *Config) error {
		dec, err := codec.GetDecoder(typ)
		if err != nil {
			return NewError("file", "get-decoder", err)
		}
		if optional {
			c.sources = append(c.sources, source.NewOptionalFile(os.ExpandEnv(path), dec))
		} else {
			c.sources = append(c.sources, source.NewFile(os.ExpandEnv(path), dec))
		}
		return nil
	}
}

// WithContent loads data with the given codec type.
func WithContent(data []byte, typ codec.Type) Option {
	return func(c *Config) error {
		dec, err := codec.GetDecoder(typ)
		if err != nil {
			return NewError("content", "get-decoder", err)
		}
		c.sources = append(c.sources, source.NewFileContent(data, dec))
		return nil
	}
}

// WithEnv loads environment variables starting with prefix.
// See [source.OSEnvVar] for the key mapping.
func WithEnv(prefix string) Option {
	return WithSource(source.NewOSEnvVar(prefix))
}

// WithBinding decodes the merged values into target, a pointer to a struct,
// on every successful [Config.Load]. Fields are matched by the "config" tag;
// zero fields take their "default" tag.
func WithBinding(target any) Option {
	return func(c *Config) error {
		if target == nil {
			return errors.New("binding target cannot be nil")
		}
		if reflect.TypeOf(target).Kind() != reflect.Pointer {
			return errors.New("binding target must be a pointer")
		}
		c.binding = target
		return nil
	}
}

// WithTag changes the struct tag used for binding.
func WithTag(name string) Option {
	return func(c *Config) error {
		c.tagName = name
		return nil
	}
}

// WithValidator adds a check over the merged values, run before binding.
func WithValidator(fn func(map[string]any) error) Option {
	return func(c *Config) error {
		if fn == nil {
			return errors.New("validator cannot be nil")
		}
		c.validators = append(c.validators, fn)
		return nil
	}
}

// New creates a Config. Option errors are joined.
func New(options ...Option) (*Config, error) {
	c := &Config{values: map[string]any{}, tagName: "config"}
	var errs []error
	for _, opt := range options {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is like [New] but panics on error.
func MustNew(options ...Option) *Config {
	c, err := New(options...)
	if err != nil {
		panic(fmt.Sprintf("config: failed to create config: %v", err))
	}
	return c
}

// Load reads every source in order, merges them, validates and binds.
// On failure the previously loaded values stay in place.
func (c *Config) Load(ctx context.Context) error {
	merged := make(map[string]any)
	for i, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		conf, err := src.Load(ctx)
		if err != nil {
			return NewError(fmt.Sprintf("source[%d]", i), "load", err)
		}
		if err = mergo.Map(&merged, lowerKeys(conf), mergo.WithOverride); err != nil {
			return NewError(fmt.Sprintf("source[%d]", i), "merge", err)
		}
	}

	for i, fn := range c.validators {
		if err := fn(merged); err != nil {
			return NewError(fmt.Sprintf("validator[%d]", i), "validate", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.binding != nil {
		// Decode into a fresh value first so a failed load leaves the target untouched.
		tmp := reflect.New(reflect.TypeOf(c.binding).Elem())
		if err := c.decode(merged, tmp.Interface()); err != nil {
			return NewError("binding", "bind", err)
		}
		if v, ok := tmp.Interface().(Validator); ok {
			if err := v.Validate(); err != nil {
				return NewError("binding", "validate", err)
			}
		}
		reflect.ValueOf(c.binding).Elem().Set(tmp.Elem())
	}

	c.values = merged
	return nil
}

// Bind decodes the loaded values into target.
func (c *Config) Bind(target any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decode(c.values, target)
}

func (c *Config) decode(values map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          c.tagName,
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err = dec.Decode(values); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	if rv := reflect.ValueOf(target); rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct {
		if err = setDefaults(rv.Elem()); err != nil {
			return fmt.Errorf("failed to apply defaults: %w", err)
		}
	}
	return nil
}

// setDefaults fills zero fields from their "default" tag, recursing into
// nested structs.
func setDefaults(val reflect.Value) error {
	typ := val.Type()
	for i := range val.NumField() {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeFor[time.Time]() {
			if err := setDefaults(field); err != nil {
				return err
			}
			continue
		}
		def, ok := typ.Field(i).Tag.Lookup("default")
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefault(field, def); err != nil {
			return fmt.Errorf("field %s: %w", typ.Field(i).Name, err)
		}
	}
	return nil
}

func setDefault(field reflect.Value, def string) error {
	if field.Type() == reflect.TypeFor[time.Duration]() {
		d, err := cast.ToDurationE(def)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(def)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(def)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(def)
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(def)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := cast.ToBoolE(def)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type for default tag: %s", field.Type())
		}
		field.Set(reflect.ValueOf(cast.ToStringSlice(strings.Split(def, ","))))
	default:
		return fmt.Errorf("unsupported type for default tag: %s", field.Kind())
	}
	return nil
}

func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = lowerKeys(nested)
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

// Values returns a copy of the top level of the loaded values.
func (c *Config) Values() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Get returns the value at a dot-separated, case-insensitive key, or nil.
func (c *Config) Get(key string) any {
	if c == nil || key == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	key = strings.ToLower(key)
	if v, ok := c.values[key]; ok {
		return v
	}
	current := c.values
	parts := strings.Split(key, ".")
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return nil
		}
		if i == len(parts)-1 {
			return v
		}
		if current, ok = v.(map[string]any); !ok {
			return nil
		}
	}
	return nil
}

// String returns the value at key as a string.
func (c *Config) String(key string) string { return cast.ToString(c.Get(key)) }

// Int returns the value at key as an int.
func (c *Config) Int(key string) int { return cast.ToInt(c.Get(key)) }

// Bool returns the value at key as a bool.
func (c *Config) Bool(key string) bool { return cast.ToBool(c.Get(key)) }

// Duration returns the value at key as a duration.
func (c *Config) Duration(key string) time.Duration { return cast.ToDuration(c.Get(key)) }

// StringSlice returns the value at key as a string slice.
func (c *Config) StringSlice(key string) []string { return cast.ToStringSlice(c.Get(key)) }
