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
	"fmt"
	"log/slog"

	promclient "github.com/prometheus/client_golang/prometheus"
)

// Option configures a [Recorder].
type Option func(*Recorder)

// WithServiceName sets the service.name attribute.
func WithServiceName(name string) Option {
	return func(r *Recorder) { r.serviceName = name }
}

// WithServiceVersion sets the service.version attribute.
func WithServiceVersion(version string) Option {
	return func(r *Recorder) { r.serviceVersion = version }
}

// WithDurationBuckets overrides the bucket boundaries, in seconds, of the
// request and provider duration histograms.
func WithDurationBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) == 0 {
			r.configErrs = append(r.configErrs, fmt.Errorf("duration buckets cannot be empty"))
			return
		}
		r.durationBuckets = buckets
	}
}

// WithRegistry exports into reg instead of a fresh registry.
func WithRegistry(reg *promclient.Registry) Option {
	return func(r *Recorder) { r.registry = reg }
}

// WithMaxCustomMetrics caps the number of distinct custom metrics.
func WithMaxCustomMetrics(n int) Option {
	return func(r *Recorder) {
		if n < 1 {
			r.configErrs = append(r.configErrs, fmt.Errorf("max custom metrics must be at least 1, got %d", n))
			return
		}
		r.maxCustomMetrics = n
	}
}

// WithGlobalMeterProvider registers the recorder's meter provider with
// otel.SetMeterProvider.
func WithGlobalMeterProvider() Option {
	return func(r *Recorder) { r.registerGlobal = true }
}

// WithEventHandler sets the handler for internal events.
func WithEventHandler(h EventHandler) Option {
	return func(r *Recorder) { r.eventHandler = h }
}

// WithLogger routes internal events to logger via [DefaultEventHandler].
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.eventHandler = DefaultEventHandler(logger) }
}
