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
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"lattice.dev/lattice/di"
	"lattice.dev/lattice/logging"
	"lattice.dev/lattice/metrics"
	"lattice.dev/lattice/route"
	"lattice.dev/lattice/tracing"
)

func tracedApp(t *testing.T, opts ...AppOption) (*App, *tracetest.SpanRecorder) {
	t.Helper()
	tp, sr := tracing.TestingProvider(t)
	return newTestApp(t, append([]AppOption{WithTracerProvider(tp)}, opts...)...), sr
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) attribute.Value {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestTracing_RequestSpan(t *testing.T) {
	t.Parallel()

	a, sr := tracedApp(t)
	require.NoError(t, a.Register(Get("/items/{id:int}", returns("ok"))))

	send(t, a, http.MethodGet, "/items/7", "")
	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /items/{id:int}", span.Name())
	assert.Equal(t, "/items/{id:int}", spanAttr(span, "http.route").AsString())
	assert.Equal(t, int64(200), spanAttr(span, "http.response.status_code").AsInt64())

	var events []string
	for _, e := range span.Events() {
		events = append(events, e.Name)
	}
	assert.Equal(t, []string{"matching", "resolving", "guarding", "before_hook", "injecting", "invoking", "after_hook", "sending", "done"}, events)
}

func TestTracing_ContinuesCallerTrace(t *testing.T) {
	t.Parallel()

	a, sr := tracedApp(t, WithPropagator(propagation.TraceContext{}))
	require.NoError(t, a.Register(Get("/", returns("ok"))))

	send(t, a, http.MethodGet, "/", "", "traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}

func TestTracing_FailedRequest(t *testing.T) {
	t.Parallel()

	a, sr := tracedApp(t)
	require.NoError(t, a.Register(Get("/boom", func(*Context) (any, error) {
		return nil, errors.New("disk full")
	})))

	send(t, a, http.MethodGet, "/boom", "")
	send(t, a, http.MethodGet, "/missing", "")
	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "lattice.request", spans[1].Name())
	assert.Equal(t, int64(404), spanAttr(spans[1], "http.response.status_code").AsInt64())
}

func TestMetrics_Requests(t *testing.T) {
	t.Parallel()

	rec := metrics.TestingRecorder(t)
	a := newTestApp(t, WithMetrics(rec), WithLayer(
		Provide("db", di.Value("conn")),
	))
	require.NoError(t, a.Register(
		Get("/users/{id:int}", returns("ok"), Args("db")),
		Get("/admin", returns("ok"), Guards(AllowIf("admins only", func(*Context, *route.Info) bool { return false }))),
	))

	send(t, a, http.MethodGet, "/users/1", "")
	send(t, a, http.MethodGet, "/users/2", "")
	send(t, a, http.MethodGet, "/admin", "")
	send(t, a, http.MethodGet, "/nowhere", "")

	requests := metrics.Gather(t, rec, "lattice_requests_total")
	assert.InDelta(t, 2, metrics.Sum(requests, map[string]string{"http_route": "/users/{id:int}", "http_response_status_code": "200"}), 0)
	assert.InDelta(t, 1, metrics.Sum(requests, map[string]string{"http_route": "unmatched", "http_response_status_code": "404"}), 0)
	assert.InDelta(t, 2, metrics.Sum(metrics.Gather(t, rec, "lattice_request_errors_total"), nil), 0)
	assert.InDelta(t, 1, metrics.Sum(metrics.Gather(t, rec, "lattice_guard_denials_total"), map[string]string{"http_route": "/admin"}), 0)
	assert.InDelta(t, 2, metrics.Sum(metrics.Gather(t, rec, "lattice_provider_calls_total"), map[string]string{"provider": "db", "outcome": "ok"}), 0)
}

func TestMetrics_Endpoint(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	s.Metrics.Enabled = true
	a := newTestApp(t, WithSettings(s), WithMetrics(metrics.TestingRecorder(t)))
	require.NoError(t, a.Register(Get("/ping", returns("pong"))))

	send(t, a, http.MethodGet, "/ping", "")
	resp, body := send(t, a, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "lattice_requests_total")
}

func TestLogging_RequestLog(t *testing.T) {
	t.Parallel()

	th := logging.NewTestHelper(t)
	a := newTestApp(t, WithLogger(th.Logger))
	require.NoError(t, a.Register(Get("/items/{id:int}", func(c *Context) (any, error) {
		c.Logger().Info("loading item")
		return "ok", nil
	})))

	send(t, a, http.MethodGet, "/items/3?full=1", "")
	th.AssertLog(t, "INFO", "request", map[string]any{
		"method": "GET",
		"path":   "/items/3",
		"route":  "/items/{id:int}",
		"status": float64(200),
		"query":  "full=1",
	})
	assert.True(t, th.ContainsLog("loading item"))
}
