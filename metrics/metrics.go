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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultDurationBuckets are histogram boundaries in seconds, from
// sub-millisecond responses to ten seconds.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

const meterName = "lattice.dev/lattice/metrics"

// Recorder records request, provider, cache and guard metrics.
type Recorder struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter
	registry *promclient.Registry
	handler  http.Handler

	requestDuration metric.Float64Histogram
	requestCount    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	errorCount      metric.Int64Counter
	providerCalls   metric.Int64Counter
	providerTime    metric.Float64Histogram
	cacheLookups    metric.Int64Counter
	guardDenials    metric.Int64Counter
	customFailures  metric.Int64Counter

	customMu         sync.RWMutex
	customCounters   map[string]metric.Int64Counter
	customHistograms map[string]metric.Float64Histogram
	maxCustomMetrics int

	serviceAttrs    []attribute.KeyValue
	serviceName     string
	serviceVersion  string
	durationBuckets []float64
	registerGlobal  bool
	eventHandler    EventHandler
	configErrs      []error
}

// New creates a [Recorder].
func New(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		serviceName:      "lattice",
		serviceVersion:   "dev",
		durationBuckets:  DefaultDurationBuckets,
		maxCustomMetrics: 100,
		customCounters:   make(map[string]metric.Int64Counter),
		customHistograms: make(map[string]metric.Float64Histogram),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.serviceName == "" {
		r.configErrs = append(r.configErrs, fmt.Errorf("service name cannot be empty"))
	}
	if len(r.configErrs) > 0 {
		return nil, fmt.Errorf("metrics: invalid configuration: %w", errors.Join(r.configErrs...))
	}
	if r.registry == nil {
		r.registry = promclient.NewRegistry()
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(r.registry))
	if err != nil {
		return nil, fmt.Errorf("metrics: create prometheus exporter: %w", err)
	}
	r.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	if r.registerGlobal {
		otel.SetMeterProvider(r.provider)
	}
	r.meter = r.provider.Meter(meterName)
	r.handler = promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	r.serviceAttrs = []attribute.KeyValue{
		attribute.String("service.name", r.serviceName),
		attribute.String("service.version", r.serviceVersion),
	}

	if err = r.initInstruments(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Recorder {
	r, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Recorder) initInstruments() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error

	r.requestDuration, err = r.meter.Float64Histogram("lattice.request.duration",
		metric.WithDescription("Duration of dispatched requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...))
	check(err)
	r.requestCount, err = r.meter.Int64Counter("lattice.requests",
		metric.WithDescription("Dispatched requests"))
	check(err)
	r.activeRequests, err = r.meter.Int64UpDownCounter("lattice.active_requests",
		metric.WithDescription("Requests currently in flight"))
	check(err)
	r.errorCount, err = r.meter.Int64Counter("lattice.request.errors",
		metric.WithDescription("Requests answered with a 4xx or 5xx status"))
	check(err)
	r.providerCalls, err = r.meter.Int64Counter("lattice.provider.calls",
		metric.WithDescription("Dependency provider invocations"))
	check(err)
	r.providerTime, err = r.meter.Float64Histogram("lattice.provider.duration",
		metric.WithDescription("Duration of dependency provider invocations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...))
	check(err)
	r.cacheLookups, err = r.meter.Int64Counter("lattice.cache.lookups",
		metric.WithDescription("Response cache lookups"))
	check(err)
	r.guardDenials, err = r.meter.Int64Counter("lattice.guard.denials",
		metric.WithDescription("Requests rejected by a guard"))
	check(err)
	r.customFailures, err = r.meter.Int64Counter("lattice.custom_metric.failures",
		metric.WithDescription("Rejected custom metric operations"))
	check(err)

	if len(errs) > 0 {
		return fmt.Errorf("metrics: create instruments: %w", errors.Join(errs...))
	}
	return nil
}

// Handler serves the registry in Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return r.handler
}

// Registry returns the Prometheus registry the recorder exports into.
func (r *Recorder) Registry() *promclient.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ServiceName returns the configured service name.
func (r *Recorder) ServiceName() string {
	if r == nil {
		return ""
	}
	return r.serviceName
}

// Shutdown flushes and stops the meter provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if err := r.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	return nil
}

// RequestMetrics tracks one in-flight request between [Recorder.Start]
// and [Recorder.Finish].
type RequestMetrics struct {
	start  time.Time
	method string
}

// Start marks the beginning of a request.
func (r *Recorder) Start(ctx context.Context, method string) *RequestMetrics {
	if r == nil {
		return nil
	}
	r.activeRequests.Add(ctx, 1, metric.WithAttributes(r.serviceAttrs...))
	return &RequestMetrics{start: time.Now(), method: method}
}

// Finish records a completed request. route is the matched template, or
// empty when no route matched; it keeps label cardinality bounded.
func (r *Recorder) Finish(ctx context.Context, m *RequestMetrics, status int, route string) {
	if r == nil || m == nil {
		return
	}
	r.activeRequests.Add(ctx, -1, metric.WithAttributes(r.serviceAttrs...))
	if route == "" {
		route = "unmatched"
	}
	attrs := metric.WithAttributes(append(r.attrs(),
		attribute.String("http.request.method", m.method),
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", status),
		attribute.String("http.status_class", statusClass(status)),
	)...)
	r.requestDuration.Record(ctx, time.Since(m.start).Seconds(), attrs)
	r.requestCount.Add(ctx, 1, attrs)
	if status >= http.StatusBadRequest {
		r.errorCount.Add(ctx, 1, attrs)
	}
}

// ObserveProvider records one provider invocation. Its signature matches
// di.Observer.
func (r *Recorder) ObserveProvider(name string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(append(r.attrs(),
		attribute.String("provider", name),
		attribute.String("outcome", outcome),
	)...)
	ctx := context.Background()
	r.providerCalls.Add(ctx, 1, attrs)
	r.providerTime.Record(ctx, elapsed.Seconds(), attrs)
}

// ObserveCache records a response cache lookup for route.
func (r *Recorder) ObserveCache(ctx context.Context, route string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.Add(ctx, 1, metric.WithAttributes(append(r.attrs(),
		attribute.String("http.route", route),
		attribute.String("result", result),
	)...))
}

// ObserveGuardDenial records a request rejected by a guard with status.
func (r *Recorder) ObserveGuardDenial(ctx context.Context, route string, status int) {
	if r == nil {
		return
	}
	r.guardDenials.Add(ctx, 1, metric.WithAttributes(append(r.attrs(),
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", status),
	)...))
}

func (r *Recorder) attrs() []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(r.serviceAttrs), len(r.serviceAttrs)+4)
	copy(out, r.serviceAttrs)
	return out
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
