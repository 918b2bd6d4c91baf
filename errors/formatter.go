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
	"encoding/json"
	"errors"
	"net/http"
)

// Formatter defines how errors are formatted in HTTP responses.
//
// Example:
//
//	response := formatter.Format(req, err)
//	w.Header().Set("Content-Type", response.ContentType)
//	w.WriteHeader(response.Status)
//	json.NewEncoder(w).Encode(response.Body)
type Formatter interface {
	// Format converts an error into HTTP response components.
	Format(req *http.Request, err error) Response
}

// Response represents a formatted error response.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// ContentType is the Content-Type header value.
	ContentType string

	// Body is the response body, marshaled as JSON.
	Body any

	// Headers contains additional headers to set (optional).
	Headers http.Header
}

// ErrorType allows errors to declare their own HTTP status code.
//
// Example:
//
//	func (e QuotaError) HTTPStatus() int {
//		return http.StatusTooManyRequests
//	}
type ErrorType interface {
	error
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrorDetails allows errors to provide additional structured information,
// such as field-level validation failures.
type ErrorDetails interface {
	error
	// Details returns structured information about the error.
	Details() any
}

// ErrorCode allows errors to provide a machine-readable code.
type ErrorCode interface {
	error
	// Code returns a machine-readable error code.
	Code() string
}

// ErrorHeaders allows errors to contribute response headers, e.g. Allow or
// Location.
type ErrorHeaders interface {
	error
	// Headers returns the headers to add to the error response.
	Headers() http.Header
}

// NewRFC9457 creates a new RFC9457 formatter.
// The baseURL parameter is prepended to problem type slugs to create full URIs.
func NewRFC9457(baseURL string) *RFC9457 {
	return &RFC9457{
		BaseURL: baseURL,
	}
}

// NewSimple creates a new Simple formatter.
func NewSimple() *Simple {
	return &Simple{}
}

// WithStatus wraps an error with an explicit HTTP status code.
// If err is nil, the status text for the given status code is used as the error message.
//
// Example:
//
//	return errors.WithStatus(err, http.StatusConflict)
func WithStatus(err error, status int) error {
	return &statusError{err: err, status: status}
}

// statusError wraps an error with an explicit status code.
type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string {
	if e.err == nil {
		return http.StatusText(e.status)
	}
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

func (e *statusError) HTTPStatus() int {
	return e.status
}

// StatusOf returns the HTTP status declared by err, or 500.
func StatusOf(err error) int {
	var typed ErrorType
	if errors.As(err, &typed) {
		return typed.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// exposed returns the message a client may see. Server errors that do not
// come from the request taxonomy are replaced with the status text unless
// debug is set.
func exposed(err error, status int, debug bool) string {
	if debug {
		return err.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.PublicMessage()
	}
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}

func headersOf(err error) http.Header {
	var h ErrorHeaders
	if errors.As(err, &h) {
		return h.Headers()
	}
	return nil
}

// Write formats err with f and writes the response to w.
func Write(w http.ResponseWriter, req *http.Request, f Formatter, err error) error {
	resp := f.Format(req, err)
	h := w.Header()
	for k, vs := range resp.Headers {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("Content-Type", resp.ContentType)
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(resp.Status)
	if req != nil && req.Method == http.MethodHead {
		return nil
	}
	return json.NewEncoder(w).Encode(resp.Body)
}
