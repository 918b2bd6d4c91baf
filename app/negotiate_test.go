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

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiate(t *testing.T) {
	t.Parallel()

	const (
		jsonType = "application/json"
		packType = "application/msgpack"
	)
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"empty header takes first offer", "", jsonType},
		{"exact match", packType, packType},
		{"wildcard", "*/*", jsonType},
		{"subtype wildcard", "application/*", jsonType},
		{"quality wins", "application/json;q=0.5, application/msgpack", packType},
		{"specific beats wildcard at equal quality", "*/*, application/msgpack", packType},
		{"zero quality excludes", "application/json;q=0, */*;q=0.1", packType},
		{"case and spaces", " Application/MsgPack ; q=0.9 ", packType},
		{"nothing acceptable", "text/html", ""},
		{"invalid quality ignored", "application/msgpack;q=7", packType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, negotiate(tt.accept, jsonType, packType))
		})
	}
}

func TestNegotiate_NoOffers(t *testing.T) {
	t.Parallel()
	assert.Empty(t, negotiate("*/*"))
}
