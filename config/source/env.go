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

package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"lattice.dev/lattice/config/codec"
)

// OSEnvVar loads configuration from environment variables sharing a prefix.
// With prefix "LATTICE_", LATTICE_LOG__LEVEL becomes log.level.
type OSEnvVar struct {
	prefix  string
	environ func() []string
	decoder codec.Decoder
}

// NewOSEnvVar returns a source reading the process environment.
func NewOSEnvVar(prefix string) *OSEnvVar {
	return &OSEnvVar{prefix: prefix, environ: os.Environ, decoder: codec.EnvVarCodec{}}
}

// Load decodes the matching variables, prefix stripped.
func (e *OSEnvVar) Load(context.Context) (map[string]any, error) {
	var lines []string
	for _, kv := range e.environ() {
		if rest, ok := strings.CutPrefix(kv, e.prefix); ok {
			lines = append(lines, rest)
		}
	}

	var conf map[string]any
	if err := e.decoder.Decode([]byte(strings.Join(lines, "\n")), &conf); err != nil {
		return nil, fmt.Errorf("failed to decode environment variables: %w", err)
	}
	return conf, nil
}
