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
	"reflect"

	apperrors "lattice.dev/lattice/errors"
)

// ExceptionHandler turns an error into a response. The error passed is the
// element of the chain the handler was registered for.
type ExceptionHandler func(c *Context, err error) *Response

type typedHandler struct {
	typ reflect.Type
	fn  ExceptionHandler
}

type sentinelHandler struct {
	target error
	fn     ExceptionHandler
}

// exceptionTable maps errors to the handlers registered on one layer.
// Within a table lookups go by concrete type, then interface type, then
// sentinel value and finally by the status code of the whole error.
type exceptionTable struct {
	byType    map[reflect.Type]ExceptionHandler
	ifaces    []typedHandler
	sentinels []sentinelHandler
	byStatus  map[int]ExceptionHandler
}

// exceptionChain holds the non-empty tables of a handler's layers, the
// handler's own first. The nearest layer with a matching entry wins.
type exceptionChain []*exceptionTable

func (t *exceptionTable) empty() bool {
	return len(t.byType) == 0 && len(t.ifaces) == 0 && len(t.sentinels) == 0 && len(t.byStatus) == 0
}

// OnError handles errors of type E anywhere in the error chain. E may be a
// concrete type or an interface.
//
//	app.OnError(func(c *app.Context, err *NotInStock) *app.Response {
//		return app.NewResponse(http.StatusConflict, map[string]string{"sku": err.SKU})
//	})
func OnError[E error](fn func(c *Context, err E) *Response) Option {
	typ := reflect.TypeFor[E]()
	h := func(c *Context, err error) *Response { return fn(c, err.(E)) }
	return func(l *Layer) {
		if typ.Kind() == reflect.Interface {
			l.exceptions.ifaces = append(l.exceptions.ifaces, typedHandler{typ: typ, fn: h})
			return
		}
		if l.exceptions.byType == nil {
			l.exceptions.byType = make(map[reflect.Type]ExceptionHandler)
		}
		l.exceptions.byType[typ] = h
	}
}

// OnErrorIs handles errors matching target with errors.Is semantics.
func OnErrorIs(target error, fn ExceptionHandler) Option {
	return func(l *Layer) {
		l.exceptions.sentinels = append(l.exceptions.sentinels, sentinelHandler{target: target, fn: fn})
	}
}

// OnStatus handles errors whose status code is code.
func OnStatus(code int, fn ExceptionHandler) Option {
	return func(l *Layer) {
		if l.exceptions.byStatus == nil {
			l.exceptions.byStatus = make(map[int]ExceptionHandler)
		}
		l.exceptions.byStatus[code] = fn
	}
}

// mergeExceptions orders the tables of chain from the handler outwards.
func mergeExceptions(chain []*Layer) exceptionChain {
	var out exceptionChain
	for i := len(chain) - 1; i >= 0; i-- {
		if t := &chain[i].exceptions; !t.empty() {
			out = append(out, t)
		}
	}
	return out
}

// find returns the handler for err and the error value to pass to it.
func (ch exceptionChain) find(err error) (ExceptionHandler, error) {
	for _, t := range ch {
		if fn, target := t.find(err); fn != nil {
			return fn, target
		}
	}
	return nil, nil
}

// find matches err against one table. Errors added by the dispatcher wrap
// the original failure in *errors.Error; such wrappers are only matched
// after everything they wrap, so a handler for the caller's own error type
// takes precedence.
func (t *exceptionTable) find(err error) (ExceptionHandler, error) {
	if t.empty() {
		return nil, nil
	}
	var (
		fn     ExceptionHandler
		target error
	)
	match := func(e error) bool {
		typ := reflect.TypeOf(e)
		if h, ok := t.byType[typ]; ok {
			fn, target = h, e
			return true
		}
		for _, ih := range t.ifaces {
			if typ.Implements(ih.typ) {
				fn, target = ih.fn, e
				return true
			}
		}
		for _, sh := range t.sentinels {
			if matches(e, typ, sh.target) {
				fn, target = sh.fn, e
				return true
			}
		}
		return false
	}
	causesFirst := func(e error) bool {
		if w, ok := e.(*apperrors.Error); ok && w.Err != nil {
			return false
		}
		return match(e)
	}
	if walk(err, causesFirst) || walk(err, match) {
		return fn, target
	}
	if h, ok := t.byStatus[apperrors.StatusOf(err)]; ok {
		return h, err
	}
	return nil, nil
}

// matches reports whether e itself, without its causes, is target.
func matches(e error, typ reflect.Type, target error) bool {
	if typ.Comparable() && e == target {
		return true
	}
	if x, ok := e.(interface{ Is(error) bool }); ok {
		return x.Is(target)
	}
	return false
}

// walk visits err and its causes depth first until visit returns true.
func walk(err error, visit func(error) bool) bool {
	if err == nil {
		return false
	}
	if visit(err) {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return walk(u.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if walk(e, visit) {
				return true
			}
		}
	}
	return false
}
