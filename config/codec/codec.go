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

package codec

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Type names a registered codec.
type Type string

// Encoder converts a value into bytes.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Decoder parses bytes into the value pointed to by v.
type Decoder interface {
	Decode(data []byte, v any) error
}

var (
	mu       sync.RWMutex
	encoders = map[Type]Encoder{}
	decoders = map[Type]Decoder{}
)

// RegisterEncoder makes an encoder available under name.
func RegisterEncoder(name Type, encoder Encoder) {
	mu.Lock()
	defer mu.Unlock()
	encoders[name] = encoder
}

// RegisterDecoder makes a decoder available under name.
func RegisterDecoder(name Type, decoder Decoder) {
	mu.Lock()
	defer mu.Unlock()
	decoders[name] = decoder
}

// GetEncoder returns the encoder registered under name.
func GetEncoder(name Type) (Encoder, error) {
	mu.RLock()
	defer mu.RUnlock()
	if e, ok := encoders[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("encoder not found for type: %s", name)
}

// GetDecoder returns the decoder registered under name.
func GetDecoder(name Type) (Decoder, error) {
	mu.RLock()
	defer mu.RUnlock()
	if d, ok := decoders[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("decoder not found for type: %s", name)
}

var extensions = map[string]Type{
	".yaml": TypeYAML,
	".yml":  TypeYAML,
	".json": TypeJSON,
	".toml": TypeTOML,
}

// Detect returns the codec type implied by the extension of path.
func Detect(path string) (Type, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensions[ext]; ok {
		return t, nil
	}
	return "", fmt.Errorf("cannot detect format from extension %q", ext)
}
