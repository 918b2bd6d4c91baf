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
	"encoding"
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// ValueGetter reads string values by key from a request part.
// Has distinguishes an empty value from an absent key.
type ValueGetter interface {
	Get(key string) string
	GetAll(key string) []string
	Has(key string) bool
}

// QueryGetter reads URL query values.
type QueryGetter url.Values

func (q QueryGetter) Get(key string) string      { return url.Values(q).Get(key) }
func (q QueryGetter) GetAll(key string) []string { return q[key] }
func (q QueryGetter) Has(key string) bool        { return url.Values(q).Has(key) }

// HeaderGetter reads header values; keys are canonicalized.
type HeaderGetter http.Header

func (h HeaderGetter) Get(key string) string { return http.Header(h).Get(key) }
func (h HeaderGetter) GetAll(key string) []string {
	return http.Header(h).Values(key)
}

func (h HeaderGetter) Has(key string) bool {
	_, ok := h[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}

// CookieGetter reads request cookies; the first cookie of a name wins.
type CookieGetter []*http.Cookie

func (c CookieGetter) Get(key string) string {
	for _, ck := range c {
		if ck.Name == key {
			return ck.Value
		}
	}
	return ""
}

func (c CookieGetter) GetAll(key string) []string {
	var out []string
	for _, ck := range c {
		if ck.Name == key {
			out = append(out, ck.Value)
		}
	}
	return out
}

func (c CookieGetter) Has(key string) bool { return c.GetAll(key) != nil }

// MapGetter reads from a plain map, such as raw path parameters.
type MapGetter map[string]string

func (m MapGetter) Get(key string) string { return m[key] }
func (m MapGetter) GetAll(key string) []string {
	if v, ok := m[key]; ok {
		return []string{v}
	}
	return nil
}
func (m MapGetter) Has(key string) bool { _, ok := m[key]; return ok }

// Tags used by [Values] for each source.
var sourceTags = map[Source]string{
	SourceQuery:  "query",
	SourcePath:   "path",
	SourceHeader: "header",
	SourceCookie: "cookie",
}

type fieldInfo struct {
	index  []int
	key    string
	def    string
	hasDef bool
}

type cacheKey struct {
	typ reflect.Type
	tag string
}

var structCache sync.Map // cacheKey -> []fieldInfo

// Values binds getter into the struct pointed to by out, using the struct tag
// of src ("query", "path", "header" or "cookie"). Absent keys take the field's
// "default" tag. Every failing field is reported in a [*MultiError].
//
//	type Page struct {
//	    Limit  int      `query:"limit" default:"20"`
//	    Tags   []string `query:"tag"`
//	}
func Values(getter ValueGetter, src Source, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: binding target must be a non-nil struct pointer, got %T", ErrUnsupportedType, out)
	}
	elem := rv.Elem()

	var multi MultiError
	for _, f := range fields(elem.Type(), sourceTags[src]) {
		raw := getter.GetAll(f.key)
		if !getter.Has(f.key) {
			if !f.hasDef {
				continue
			}
			raw = []string{f.def}
		}
		field := elem.FieldByIndex(f.index)
		if err := setField(field, raw); err != nil {
			multi.Errors = append(multi.Errors, &BindError{Source: src, Field: f.key, Value: strings.Join(raw, ","), Err: err})
		}
	}
	return multi.errorOrNil()
}

// Query binds url query values into a new T.
func Query[T any](values url.Values) (T, error) {
	var out T
	err := Values(QueryGetter(values), SourceQuery, &out)
	return out, err
}

// Header binds request headers into a new T.
func Header[T any](h http.Header) (T, error) {
	var out T
	err := Values(HeaderGetter(h), SourceHeader, &out)
	return out, err
}

// Cookie binds request cookies into a new T.
func Cookie[T any](cookies []*http.Cookie) (T, error) {
	var out T
	err := Values(CookieGetter(cookies), SourceCookie, &out)
	return out, err
}

func fields(t reflect.Type, tag string) []fieldInfo {
	key := cacheKey{t, tag}
	if cached, ok := structCache.Load(key); ok {
		return cached.([]fieldInfo)
	}
	infos := collectFields(t, tag, nil)
	actual, _ := structCache.LoadOrStore(key, infos)
	return actual.([]fieldInfo)
}

func collectFields(t reflect.Type, tag string, prefix []int) []fieldInfo {
	var out []fieldInfo
	for i := range t.NumField() {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			out = append(out, collectFields(sf.Type, tag, index)...)
			continue
		}
		name, ok := sf.Tag.Lookup(tag)
		if !ok || name == "-" || !sf.IsExported() {
			continue
		}
		name, _, _ = strings.Cut(name, ",")
		if name == "" {
			name = sf.Name
		}
		def, hasDef := sf.Tag.Lookup("default")
		out = append(out, fieldInfo{index: index, key: name, def: def, hasDef: hasDef})
	}
	return out
}

var (
	durationType        = reflect.TypeFor[time.Duration]()
	timeType            = reflect.TypeFor[time.Time]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func setField(field reflect.Value, raw []string) error {
	t := field.Type()
	if t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
		if len(raw) == 1 && strings.Contains(raw[0], ",") {
			raw = strings.Split(raw[0], ",")
		}
		slice := reflect.MakeSlice(t, len(raw), len(raw))
		for i, s := range raw {
			if err := setScalar(slice.Index(i), strings.TrimSpace(s)); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	}
	var s string
	if len(raw) > 0 {
		s = raw[0]
	}
	return setScalar(field, s)
}

func setScalar(field reflect.Value, s string) error {
	t := field.Type()
	if t.Kind() == reflect.Pointer {
		ptr := reflect.New(t.Elem())
		if err := setScalar(ptr.Elem(), s); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	switch {
	case t == durationType:
		d, err := cast.ToDurationE(s)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	case t == timeType:
		tm, err := cast.ToTimeE(s)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(tm))
		return nil
	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		return field.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
	}

	switch t.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		if field.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, t)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		if field.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, t)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return nil
}
