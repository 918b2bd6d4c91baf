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
	"errors"
	"fmt"
	"io/fs"
	"os"

	"lattice.dev/lattice/config/codec"
)

// File loads configuration from a file path or from in-memory content.
type File struct {
	path     string
	data     []byte
	decoder  codec.Decoder
	optional bool
}

// NewFile returns a source reading path with decoder.
func NewFile(path string, decoder codec.Decoder) *File {
	return &File{path: path, decoder: decoder}
}

// NewOptionalFile is like [NewFile] but a missing file yields no values.
func NewOptionalFile(path string, decoder codec.Decoder) *File {
	return &File{path: path, decoder: decoder, optional: true}
}

// NewFileContent returns a source decoding data.
func NewFileContent(data []byte, decoder codec.Decoder) *File {
	return &File{data: data, decoder: decoder}
}

// Load reads and decodes the file. The file is re-read on every call.
func (f *File) Load(context.Context) (map[string]any, error) {
	data := f.data
	if f.path != "" {
		var err error
		data, err = os.ReadFile(f.path)
		if errors.Is(err, fs.ErrNotExist) && f.optional {
			return map[string]any{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}

	var conf map[string]any
	if err := f.decoder.Decode(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return conf, nil
}
