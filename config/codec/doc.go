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

// Package codec holds the encoders and decoders used by config sources.
//
// Built-in codecs are JSON, YAML (goccy/go-yaml), TOML (BurntSushi/toml)
// and the environment variable format. Register others with
// [RegisterEncoder] and [RegisterDecoder]; [Detect] maps a file extension
// to a registered [Type].
package codec
