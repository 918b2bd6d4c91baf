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

// Package binding converts raw request input into typed values.
//
// [Body] decodes request bodies by Content-Type (JSON, MessagePack, YAML,
// TOML) and optionally validates the result with a
// [lattice.dev/lattice/validation.Validator]. MessagePack bodies use json
// struct tags so one type serves both encodings.
//
//	body := binding.NewBody(binding.WithStrict(), binding.WithValidator(validation.MustNew()))
//	order, err := binding.As[CreateOrder](ctx, body, r.Header.Get("Content-Type"), data)
//
// [Values] binds query, path, header or cookie values into tagged structs:
//
//	type Page struct {
//	    Limit int    `query:"limit" default:"20"`
//	    Sort  string `query:"sort"`
//	}
//	page, err := binding.Query[Page](r.URL.Query())
package binding
