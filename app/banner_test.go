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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice.dev/lattice/di"
)

func productionApp(t *testing.T, opts ...AppOption) *App {
	t.Helper()
	s := DefaultSettings()
	s.Environment = EnvProduction
	s.Name = "orders"
	s.Version = "1.4.0"
	return newTestApp(t, append([]AppOption{WithSettings(s)}, opts...)...)
}

func TestPrintRoutes(t *testing.T) {
	t.Parallel()

	a := productionApp(t, WithLayer(Provide("db", di.Value("conn"))))
	require.NoError(t, a.Register(
		Get("/orders/{id:int}", returns("ok"), Args("db"), Name("getOrder"), Cache(0)),
		Post("/orders", returns("ok"), Blocking(), Name("createOrder")),
	))

	var buf bytes.Buffer
	require.NoError(t, a.PrintRoutes(&buf))
	out := buf.String()
	for _, want := range []string{"Method", "Path", "Handler", "GET", "/orders/{id:int}", "getOrder", "db", "cached", "POST", "createOrder", "blocking"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "production output is plain")
}

func TestPrintRoutes_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, productionApp(t).PrintRoutes(&buf))
	assert.Equal(t, "No routes registered\n", buf.String())
}

func TestPrintRoutes_RegistrationError(t *testing.T) {
	t.Parallel()

	a := productionApp(t)
	require.NoError(t, a.Register(Get("/x/{id:nope}", returns(nil))))

	var reg *RegistrationError
	require.ErrorAs(t, a.PrintRoutes(&bytes.Buffer{}), &reg)
}

func TestBanner(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a := productionApp(t, WithBannerOutput(&buf))
	require.NoError(t, a.Register(Get("/", returns("ok"))))
	require.NoError(t, a.Freeze())

	a.printBanner(":9000")
	out := buf.String()
	assert.Contains(t, out, "1.4.0")
	assert.Contains(t, out, EnvProduction)
	assert.Contains(t, out, "http://0.0.0.0:9000")
	assert.Contains(t, out, "Disabled")
	assert.NotContains(t, out, "Dependencies", "the route table is for development only")
	assert.Greater(t, strings.Count(out, "\n"), 6)
}
