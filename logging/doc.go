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

// Package logging provides structured logging on top of log/slog.
//
// # Basic Usage
//
//	logger := logging.MustNew(logging.WithConsoleHandler())
//	defer logger.Shutdown(context.Background())
//	logger.Info("listening", "addr", ":8080")
//
// JSON output with service attributes:
//
//	logger := logging.MustNew(
//	    logging.WithJSONHandler(),
//	    logging.WithServiceName("orders"),
//	    logging.WithEnvironment("prod"),
//	)
//
// # Requests
//
// The dispatcher emits one access entry per request through [Logger.LogRequest].
// Handlers reach a request-scoped [ContextLogger] with [FromContext]; its
// entries carry trace_id and span_id when a span is active.
//
// # Sampling
//
//	logging.WithSampling(logging.SamplingConfig{Initial: 100, Thereafter: 100, Tick: time.Minute})
//
// Entries at ERROR and above always bypass sampling.
//
// # Redaction
//
// Values of password, token, secret, api_key, authorization and cookie
// attributes are replaced with ***REDACTED***. Add keys with
// [WithRedactedKeys].
package logging
