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

package route

import (
	"strings"
)

// Segment is one slash separated element of a template.
// A literal segment with an empty Literal marks a trailing slash.
type Segment struct {
	Literal string    // Literal text (empty for parameters)
	Name    string    // Parameter name (empty for literals)
	Type    ParamType // Parameter type (parameters only)
	IsParam bool
}

// Param is a parameter declared by a template, in declaration order.
type Param struct {
	Name string
	Type ParamType
}

// Template is a compiled path template. It is immutable once compiled.
type Template struct {
	segments []Segment
	params   []Param
}

// Root is the template for "/".
var Root = &Template{}

// Compile parses a path template.
//
// A missing leading slash is added and repeated slashes are collapsed, so
// "items//{id}" compiles to "/items/{id}". Errors are *TemplateError values.
func Compile(template string) (*Template, error) {
	p := normalize(template)
	if p == "/" {
		return Root, nil
	}

	parts := strings.Split(p[1:], "/")
	t := &Template{segments: make([]Segment, 0, len(parts))}
	seen := make(map[string]struct{}, 4)

	for i, part := range parts {
		if part == "" {
			// Only the last element can be empty after normalization.
			t.segments = append(t.segments, Segment{})
			continue
		}

		if !strings.ContainsAny(part, "{}") {
			t.segments = append(t.segments, Segment{Literal: part})
			continue
		}

		seg, err := parseParam(template, part)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[seg.Name]; dup {
			return nil, templateErrorf(template, "duplicate parameter %q", seg.Name)
		}
		seen[seg.Name] = struct{}{}

		if seg.Type == TypePath && i != len(parts)-1 {
			return nil, templateErrorf(template, "path parameter %q must be the last segment", seg.Name)
		}

		t.segments = append(t.segments, seg)
		t.params = append(t.params, Param{Name: seg.Name, Type: seg.Type})
	}

	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(template string) *Template {
	t, err := Compile(template)
	if err != nil {
		panic(err)
	}
	return t
}

func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

func parseParam(template, part string) (Segment, error) {
	if len(part) < 2 || part[0] != '{' || part[len(part)-1] != '}' {
		return Segment{}, templateErrorf(template, "malformed segment %q", part)
	}

	inner := part[1 : len(part)-1]
	if strings.ContainsAny(inner, "{}") {
		return Segment{}, templateErrorf(template, "malformed segment %q", part)
	}

	name, tag, hasType := strings.Cut(inner, ":")
	name = strings.TrimSpace(name)
	tag = strings.TrimSpace(tag)

	if !validName(name) {
		return Segment{}, templateErrorf(template, "invalid parameter name in %q", part)
	}

	typ := TypeString
	if hasType {
		var ok bool
		if typ, ok = LookupType(tag); !ok {
			return Segment{}, templateErrorf(template, "unknown parameter type %q", tag)
		}
	}

	return Segment{Name: name, Type: typ, IsParam: true}, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Combine joins a prefix and a suffix template. The prefix's trailing slash
// is dropped unless the suffix is the root template.
func Combine(prefix, suffix *Template) (*Template, error) {
	if suffix.IsRoot() {
		return prefix, nil
	}
	if prefix.IsRoot() {
		return suffix, nil
	}

	head := prefix.segments
	if prefix.HasTrailingSlash() {
		head = head[:len(head)-1]
	}

	if n := len(head); n > 0 && head[n-1].IsParam && head[n-1].Type == TypePath {
		return nil, templateErrorf(prefix.String()+suffix.String(),
			"path parameter %q must be the last segment", head[n-1].Name)
	}

	names := make(map[string]struct{}, len(prefix.params))
	for _, p := range prefix.params {
		names[p.Name] = struct{}{}
	}
	for _, p := range suffix.params {
		if _, dup := names[p.Name]; dup {
			return nil, templateErrorf(prefix.String()+suffix.String(), "duplicate parameter %q", p.Name)
		}
	}

	t := &Template{
		segments: make([]Segment, 0, len(head)+len(suffix.segments)),
		params:   make([]Param, 0, len(prefix.params)+len(suffix.params)),
	}
	t.segments = append(t.segments, head...)
	t.segments = append(t.segments, suffix.segments...)
	t.params = append(t.params, prefix.params...)
	t.params = append(t.params, suffix.params...)

	return t, nil
}

// Segments returns a copy of the template segments.
func (t *Template) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Params returns the declared parameters in order.
func (t *Template) Params() []Param {
	out := make([]Param, len(t.params))
	copy(out, t.params)
	return out
}

// Param returns the declared parameter with the given name.
func (t *Template) Param(name string) (Param, bool) {
	for _, p := range t.params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// IsRoot reports whether the template is "/".
func (t *Template) IsRoot() bool { return len(t.segments) == 0 }

// HasTrailingSlash reports whether the template ends with a slash.
func (t *Template) HasTrailingSlash() bool {
	n := len(t.segments)
	return n > 0 && !t.segments[n-1].IsParam && t.segments[n-1].Literal == ""
}

// String returns the canonical form, e.g. "/items/{id:int}".
func (t *Template) String() string {
	return t.render(func(s Segment) string { return "{" + s.Name + ":" + s.Type.String() + "}" })
}

// OpenAPIPath returns the template with untyped placeholders, e.g. "/items/{id}".
func (t *Template) OpenAPIPath() string {
	return t.render(func(s Segment) string { return "{" + s.Name + "}" })
}

// Shape returns the structural key of the template: literals and parameter
// types with names erased. Two templates with equal shapes match exactly the
// same set of request paths.
func (t *Template) Shape() string {
	return t.render(func(s Segment) string { return "{" + s.Type.String() + "}" })
}

func (t *Template) render(param func(Segment) string) string {
	if len(t.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range t.segments {
		b.WriteByte('/')
		if s.IsParam {
			b.WriteString(param(s))
		} else {
			b.WriteString(s.Literal)
		}
	}
	return b.String()
}
