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
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Get returns the value at key converted to T, or the zero value.
//
//	workers := config.Get[int](cfg, "workers")
func Get[T any](c *Config, key string) T {
	v, _ := GetE[T](c, key)
	return v
}

// GetOr returns the value at key converted to T, or def when the key is
// missing or not convertible.
func GetOr[T any](c *Config, key string, def T) T {
	if v, err := GetE[T](c, key); err == nil {
		return v
	}
	return def
}

// GetE returns the value at key converted to T.
func GetE[T any](c *Config, key string) (T, error) {
	var zero T
	val := c.Get(key)
	if val == nil {
		return zero, fmt.Errorf("key %q not found", key)
	}
	if typed, ok := val.(T); ok {
		return typed, nil
	}

	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case string:
		out, err = cast.ToStringE(val)
	case int:
		out, err = cast.ToIntE(val)
	case int64:
		out, err = cast.ToInt64E(val)
	case float64:
		out, err = cast.ToFloat64E(val)
	case bool:
		out, err = cast.ToBoolE(val)
	case time.Duration:
		out, err = cast.ToDurationE(val)
	case time.Time:
		out, err = cast.ToTimeE(val)
	case []string:
		out, err = cast.ToStringSliceE(val)
	case map[string]any:
		out, err = cast.ToStringMapE(val)
	default:
		return zero, fmt.Errorf("cannot convert value at key %q to %T", key, zero)
	}
	if err != nil {
		return zero, fmt.Errorf("key %q: %w", key, err)
	}
	return out.(T), nil
}
