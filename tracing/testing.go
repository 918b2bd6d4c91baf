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

package tracing

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestingProvider creates a [Provider] that records ended spans in memory
// and shuts down when t finishes.
//
//	tp, spans := tracing.TestingProvider(t)
//	a := app.MustNew(app.WithTracerProvider(tp))
//	...
//	require.Len(t, spans.Ended(), 1)
func TestingProvider(t testing.TB, opts ...Option) (*Provider, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	all := append([]Option{WithServiceName("test"), WithSpanProcessor(sr)}, opts...)
	p, err := New(context.Background(), all...)
	if err != nil {
		t.Fatalf("TestingProvider: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Shutdown(ctx); err != nil {
			t.Logf("TestingProvider: %v", err)
		}
	})
	return p, sr
}
