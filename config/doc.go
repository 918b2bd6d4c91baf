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

// Package config loads layered configuration from files and environment
// variables.
//
// Sources are merged in order, later ones overriding earlier ones, with
// case-insensitive keys:
//
//	var s Settings
//	cfg := config.MustNew(
//	    config.WithOptionalFile("lattice.yaml"),
//	    config.WithEnv("LATTICE_"),
//	    config.WithBinding(&s),
//	)
//	if err := cfg.Load(ctx); err != nil {
//	    return err
//	}
//
// File formats are detected from the extension (.yaml, .yml, .json, .toml).
// Environment keys use a double underscore for nesting: LATTICE_LOG__LEVEL
// sets log.level.
//
// Bound structs use the "config" tag for keys and the "default" tag for zero
// fields, and may implement [Validator]. Typed reads are available through
// [Config.String], [Get], [GetOr] and [GetE].
package config
