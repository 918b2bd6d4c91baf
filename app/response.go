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
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"lattice.dev/lattice/binding"
	"lattice.dev/lattice/cache"
)

// Response is an explicit response. Handlers and hooks may return one to
// control the status, headers and content type; any other value becomes the
// body of a response with the default status.
type Response struct {
	Status      int
	Header      http.Header
	Cookies     []*http.Cookie
	Body        any
	ContentType string
}

// NewResponse returns a response with status and body.
func NewResponse(status int, body any) *Response {
	return &Response{Status: status, Body: body, Header: make(http.Header)}
}

// SetHeader sets a response header and returns r.
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// SetCookie adds a cookie and returns r. It replaces a layer cookie of the
// same name.
func (r *Response) SetCookie(c *http.Cookie) *Response {
	r.Cookies = append(r.Cookies, c)
	return r
}

// Encoder converts a value of a registered type into a serializable one.
type Encoder func(v any) (any, error)

const (
	mediaText   = "text/plain; charset=utf-8"
	mediaBinary = "application/octet-stream"
)

// defaultStatus returns the success status for method when no layer sets one.
func defaultStatus(method string) int {
	switch method {
	case http.MethodPost:
		return http.StatusCreated
	case http.MethodDelete:
		return http.StatusNoContent
	}
	return http.StatusOK
}

// toResponse adopts v as the response of c.
func (c *Context) toResponse(v any) *Response {
	if r, ok := v.(*Response); ok {
		if r.Status == 0 {
			r.Status = c.successStatus()
		}
		return r
	}
	return &Response{Status: c.successStatus(), Body: v}
}

func (c *Context) successStatus() int {
	if c.ep != nil && c.ep.config.Status != 0 {
		return c.ep.config.Status
	}
	if c.route == nil {
		return defaultStatus(c.req.Method)
	}
	return defaultStatus(c.route.Method)
}

// render serializes resp into a cacheable entry.
func (c *Context) render(resp *Response) (*cache.Entry, error) {
	e := &cache.Entry{Status: resp.Status, Header: make(http.Header)}
	if c.ep != nil {
		for k, vs := range c.ep.config.Headers {
			e.Header[k] = append([]string(nil), vs...)
		}
	}
	for k, vs := range resp.Header {
		e.Header[k] = append([]string(nil), vs...)
	}
	c.setCookies(e.Header, resp.Cookies)
	if e.Status == 0 {
		e.Status = http.StatusOK
	}
	if resp.Body == nil || e.Status == http.StatusNoContent || e.Status == http.StatusNotModified {
		return e, nil
	}

	body, ct := resp.Body, resp.ContentType
	switch b := body.(type) {
	case []byte:
		e.Body = b
		e.Header.Set("Content-Type", or(ct, mediaBinary))
		return e, nil
	case string:
		e.Body = []byte(b)
		e.Header.Set("Content-Type", or(ct, mediaText))
		return e, nil
	}

	body, err := c.encode(body)
	if err != nil {
		return nil, err
	}
	if ct == "" {
		ct = negotiate(c.req.Header.Get("Accept"), binding.MediaJSON, binding.MediaMsgPack)
		if ct == "" {
			ct = binding.MediaJSON
		}
	}
	if ct == binding.MediaMsgPack {
		e.Body, err = msgpack.Marshal(body)
	} else {
		e.Body, err = json.Marshal(body)
	}
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	e.Header.Set("Content-Type", ct)
	return e, nil
}

// setCookies adds a Set-Cookie line per cookie of the layers and of the
// response, ordered by name. Response cookies replace layer cookies.
func (c *Context) setCookies(h http.Header, own []*http.Cookie) {
	var layered map[string]*http.Cookie
	if c.ep != nil {
		layered = c.ep.config.Cookies
	}
	if len(layered) == 0 && len(own) == 0 {
		return
	}
	all := maps.Clone(layered)
	if all == nil {
		all = make(map[string]*http.Cookie, len(own))
	}
	for _, ck := range own {
		all[ck.Name] = ck
	}
	for _, name := range slices.Sorted(maps.Keys(all)) {
		if v := all[name].String(); v != "" {
			h.Add("Set-Cookie", v)
		}
	}
}

// encode applies the registered type encoders to v and to the elements of
// slices and arrays.
func (c *Context) encode(v any) (any, error) {
	if c.ep == nil || len(c.ep.config.Encoders) == 0 {
		return v, nil
	}
	enc := c.ep.config.Encoders
	if fn, ok := enc[reflect.TypeOf(v)]; ok {
		return fn(v)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return v, nil
	}
	fn, ok := enc[rv.Type().Elem()]
	if !ok {
		return v, nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		ev, err := fn(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

// write sends e. The body is omitted for HEAD.
func (c *Context) write(e *cache.Entry) {
	h := c.w.Header()
	for k, vs := range e.Header {
		h[k] = append([]string(nil), vs...)
	}
	c.w.WriteHeader(e.Status)
	c.status = e.Status
	if c.req.Method == http.MethodHead || len(e.Body) == 0 {
		return
	}
	if _, err := c.w.Write(e.Body); err != nil {
		c.log().Debug("write response failed", "error", err)
	}
}

func or(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
