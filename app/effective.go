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
	"maps"
	"net/http"
	"reflect"
	"slices"
	"time"

	"lattice.dev/lattice/di"
)

// EffectiveConfig is the configuration of one handler after merging its
// layer chain.
//
// Scalars take the value of the nearest layer that sets them. Guards and
// middleware are concatenated from the application down. Keyed collections
// (providers, parameters, response headers and cookies, encoders, exception
// handlers and options) are merged per key, nearest layer wins.
type EffectiveConfig struct {
	Providers     map[string]*di.Provider
	Guards        []Guard
	Middleware    []Middleware
	BeforeRequest BeforeHook
	AfterRequest  AfterHook
	AfterResponse AfterResponseHook
	Params        map[string]*Parameter
	Headers       http.Header
	Cookies       map[string]*http.Cookie
	Encoders      map[reflect.Type]Encoder
	Opts          map[string]any
	Tags          []string
	Status        int

	// CacheTTL is nil when caching is off. A zero value means the
	// application default.
	CacheTTL        *time.Duration
	RedirectSlashes bool

	exceptions exceptionChain
}

// Resolve merges chain, ordered from the application to the handler. It does
// not modify the layers and returns equal results for equal chains.
func Resolve(chain []*Layer) *EffectiveConfig {
	ec := &EffectiveConfig{
		Providers: make(map[string]*di.Provider),
		Params:    make(map[string]*Parameter),
		Headers:   make(http.Header),
		Cookies:   make(map[string]*http.Cookie),
		Encoders:  make(map[reflect.Type]Encoder),
		Opts:      make(map[string]any),
	}
	var cacheTTL *time.Duration
	for _, l := range chain {
		maps.Copy(ec.Providers, l.providers)
		maps.Copy(ec.Params, l.params)
		maps.Copy(ec.Encoders, l.encoders)
		maps.Copy(ec.Opts, l.opts)
		maps.Copy(ec.Cookies, l.cookies)
		for k, vs := range l.headers {
			ec.Headers[k] = slices.Clone(vs)
		}
		ec.Guards = append(ec.Guards, l.guards...)
		ec.Middleware = append(ec.Middleware, l.middleware...)
		for _, t := range l.tags {
			if !slices.Contains(ec.Tags, t) {
				ec.Tags = append(ec.Tags, t)
			}
		}

		if l.before != nil {
			ec.BeforeRequest = l.before
		}
		if l.after != nil {
			ec.AfterRequest = l.after
		}
		if l.afterResponse != nil {
			ec.AfterResponse = l.afterResponse
		}
		if l.status != 0 {
			ec.Status = l.status
		}
		if l.cacheTTL != nil {
			cacheTTL = l.cacheTTL
		}
		if l.redirectSlashes != nil {
			ec.RedirectSlashes = *l.redirectSlashes
		}
	}
	if cacheTTL != nil && *cacheTTL >= 0 {
		ttl := *cacheTTL
		ec.CacheTTL = &ttl
	}
	ec.exceptions = mergeExceptions(chain)
	return ec
}
