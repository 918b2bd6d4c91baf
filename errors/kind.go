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

package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies request errors.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindMethodNotAllowed Kind = "method_not_allowed"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindValidation       Kind = "validation_failed"
	KindHandler          Kind = "handler_failed"
	KindProvider         Kind = "provider_failed"
	KindInternal         Kind = "internal"
)

var kindStatus = map[Kind]int{
	KindNotFound:         http.StatusNotFound,
	KindMethodNotAllowed: http.StatusMethodNotAllowed,
	KindUnauthorized:     http.StatusUnauthorized,
	KindForbidden:        http.StatusForbidden,
	KindValidation:       http.StatusBadRequest,
	KindHandler:          http.StatusInternalServerError,
	KindProvider:         http.StatusInternalServerError,
	KindInternal:         http.StatusInternalServerError,
}

// Status returns the default HTTP status of the kind.
func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is a request error: a kind, a client-facing message and the cause.
// It implements ErrorType, ErrorCode, ErrorDetails and ErrorHeaders.
type Error struct {
	Kind    Kind
	Message string      // Client-facing message
	Status  int         // Overrides Kind.Status when non-zero
	Err     error       // Cause, kept for logs
	Fields  any         // Structured details, e.g. validation failures
	Header  http.Header // Extra response headers
}

// Error implements the error interface. It includes the cause.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus implements ErrorType.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.Status()
}

// Code implements ErrorCode.
func (e *Error) Code() string { return string(e.Kind) }

// Details implements ErrorDetails. It is nil when no fields were attached.
func (e *Error) Details() any { return e.Fields }

// Headers implements ErrorHeaders.
func (e *Error) Headers() http.Header { return e.Header }

// PublicMessage returns the message safe to show clients. Server-side kinds
// never expose their cause.
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.HTTPStatus() >= http.StatusInternalServerError {
		return http.StatusText(e.HTTPStatus())
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.HTTPStatus())
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindForbidden}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// NotFound returns a not_found error.
func NotFound(cause error) *Error {
	return &Error{Kind: KindNotFound, Message: "not found", Err: cause}
}

// MethodNotAllowed returns a method_not_allowed error carrying the Allow header.
func MethodNotAllowed(allowed []string, cause error) *Error {
	return &Error{
		Kind:    KindMethodNotAllowed,
		Message: "method not allowed",
		Err:     cause,
		Header:  http.Header{"Allow": {strings.Join(allowed, ", ")}},
	}
}

// Unauthorized returns an unauthorized error.
func Unauthorized(msg string) *Error {
	if msg == "" {
		msg = "authentication required"
	}
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden returns a forbidden error.
func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "forbidden"
	}
	return &Error{Kind: KindForbidden, Message: msg}
}

// Validation returns a validation_failed error with optional field details.
func Validation(msg string, cause error, fields any) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: cause, Fields: fields}
}

// HandlerFailed wraps an error returned or raised by a handler.
func HandlerFailed(cause error) *Error {
	return &Error{Kind: KindHandler, Err: cause}
}

// ProviderFailed wraps a dependency provider failure.
func ProviderFailed(name string, cause error) *Error {
	return &Error{Kind: KindProvider, Err: fmt.Errorf("dependency %q: %w", name, cause)}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Err: cause}
}
