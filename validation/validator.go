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

package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks values against "validate" struct tags using
// go-playground/validator, then calls [ContextValidator] or [SelfValidator].
// Field paths use json tag names.
//
// A Validator is safe for concurrent use.
type Validator struct {
	tags *validator.Validate
}

// Option configures a [Validator].
type Option func(*Validator) error

var reSlug = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// WithTag registers a custom validation tag.
func WithTag(name string, fn func(value reflect.Value, param string) bool) Option {
	return func(v *Validator) error {
		return v.tags.RegisterValidation(name, func(fl validator.FieldLevel) bool {
			return fn(fl.Field(), fl.Param())
		})
	}
}

// New creates a Validator. The built-in "slug" tag is always registered.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{tags: validator.New(validator.WithRequiredStructEnabled())}
	v.tags.RegisterTagNameFunc(jsonName)
	if err := v.tags.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return reSlug.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register slug tag: %w", err)
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("validation option: %w", err)
		}
	}
	return v, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Validator {
	v, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("validation.MustNew: %v", err))
	}
	return v
}

// Validate returns nil, an [*Error] for constraint failures, or another error
// when value cannot be validated at all.
func (v *Validator) Validate(ctx context.Context, value any) error {
	if value == nil {
		return ErrNilValue
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ErrNilValue
	}

	var out Error
	if reflect.Indirect(rv).Kind() == reflect.Struct {
		if err := v.tags.StructCtx(ctx, value); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return fmt.Errorf("validate %T: %w", value, err)
			}
			for _, fe := range verrs {
				out.Fields = append(out.Fields, FieldError{
					Path:    fieldPath(fe.Namespace()),
					Code:    "tag." + fe.Tag(),
					Message: message(fe),
					Meta:    map[string]any{"tag": fe.Tag(), "param": fe.Param()},
				})
			}
		}
	}

	var selfErr error
	switch sv := value.(type) {
	case ContextValidator:
		selfErr = sv.ValidateContext(ctx)
	case SelfValidator:
		selfErr = sv.Validate()
	}
	if selfErr != nil {
		var ve *Error
		var fe FieldError
		switch {
		case errors.As(selfErr, &ve):
			out.Fields = append(out.Fields, ve.Fields...)
		case errors.As(selfErr, &fe):
			out.Fields = append(out.Fields, fe)
		default:
			out.Fields = append(out.Fields, FieldError{Code: "custom", Message: selfErr.Error()})
		}
	}

	return out.ErrorOrNil()
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// fieldPath drops the root type name and rewrites indexes:
// "CreateOrder.items[2].price" becomes "items.2.price".
func fieldPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	rest = strings.ReplaceAll(rest, "[", ".")
	return strings.ReplaceAll(rest, "]", "")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "min", "gte":
		return bound("at least", fe)
	case "max", "lte":
		return bound("at most", fe)
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "slug":
		return "must be a lowercase slug"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

func bound(rel string, fe validator.FieldError) string {
	switch fe.Kind() {
	case reflect.String:
		return fmt.Sprintf("must be %s %s characters long", rel, fe.Param())
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("must contain %s %s items", rel, fe.Param())
	}
	return fmt.Sprintf("must be %s %s", rel, fe.Param())
}
