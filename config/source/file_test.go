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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice.dev/lattice/config/codec"
)

func TestFile_Load(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lattice.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7000\"\nworkers: 4\n"), 0o600))

	conf, err := NewFile(path, codec.YAMLCodec{}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ":7000", conf["addr"])
	assert.EqualValues(t, 4, conf["workers"])
}

func TestFile_Missing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.toml")

	_, err := NewFile(missing, codec.TOMLCodec{}).Load(context.Background())
	require.Error(t, err)

	conf, err := NewOptionalFile(missing, codec.TOMLCodec{}).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conf)
}

func TestFileContent_DecodeError(t *testing.T) {
	t.Parallel()

	_, err := NewFileContent([]byte("{not json"), codec.JSONCodec{}).Load(context.Background())
	require.ErrorContains(t, err, "failed to decode file")
}
