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

// Package errors defines the request error taxonomy and formats errors as
// HTTP responses.
//
// # Request Errors
//
// Every failure surfaced to a client is an *Error with a Kind:
//
//   - not_found (404), method_not_allowed (405, with Allow)
//   - unauthorized (401), forbidden (403)
//   - validation_failed (400, with field details)
//   - handler_failed, provider_failed, internal (500)
//
// The cause is kept in the error chain for logging. Server-side kinds never
// expose their cause to clients unless a formatter runs in debug mode.
//
// # Formatters
//
//   - RFC9457: RFC 9457 Problem Details (application/problem+json)
//   - Simple: Simple JSON error responses (application/json)
//
// Example:
//
//	formatter := errors.NewRFC9457("https://api.example.com/problems")
//	response := formatter.Format(r, errors.Forbidden("admins only"))
//	w.Header().Set("Content-Type", response.ContentType)
//	w.WriteHeader(response.Status)
//	json.NewEncoder(w).Encode(response.Body)
//
// # Error Interfaces
//
// Domain errors can implement optional interfaces to control the response:
//
//   - ErrorType: declare the HTTP status code
//   - ErrorDetails: provide structured details
//   - ErrorCode: provide a machine-readable code
//   - ErrorHeaders: contribute response headers
package errors
