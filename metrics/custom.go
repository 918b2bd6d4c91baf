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
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMetricLimit is returned once [WithMaxCustomMetrics] distinct custom
// metrics exist.
var ErrMetricLimit = errors.New("custom metric limit reached")

var metricNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

const maxMetricNameLength = 255

// Prefixes owned by Prometheus or by the built-in instruments.
var reservedPrefixes = []string{"__", "lattice."}

func validateMetricName(name string) error {
	if name == "" {
		return errors.New("metric name cannot be empty")
	}
	if len(name) > maxMetricNameLength {
		return fmt.Errorf("metric name too long: %d characters (max %d)", len(name), maxMetricNameLength)
	}
	if !metricNameRegex.MatchString(name) {
		return fmt.Errorf("invalid metric name %q: must start with a letter and contain only letters, digits, '_', '.' or '-'", name)
	}
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(name, p) {
			return fmt.Errorf("metric name %q uses reserved prefix %q", name, p)
		}
	}
	return nil
}

// AddCounter adds value to the custom counter name, creating it on first use.
func (r *Recorder) AddCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) error {
	if r == nil {
		return nil
	}
	c, err := r.counter(name)
	if err != nil {
		r.customFailures.Add(ctx, 1)
		r.emit(EventWarning, "custom counter rejected", "name", name, "error", err)
		return fmt.Errorf("add counter %q: %w", name, err)
	}
	c.Add(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

// IncrementCounter adds one to the custom counter name.
func (r *Recorder) IncrementCounter(ctx context.Context, name string, attrs ...attribute.KeyValue) error {
	return r.AddCounter(ctx, name, 1, attrs...)
}

// RecordHistogram records value in the custom histogram name.
func (r *Recorder) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) error {
	if r == nil {
		return nil
	}
	h, err := r.histogram(name)
	if err != nil {
		r.customFailures.Add(ctx, 1)
		r.emit(EventWarning, "custom histogram rejected", "name", name, "error", err)
		return fmt.Errorf("record histogram %q: %w", name, err)
	}
	h.Record(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

func (r *Recorder) counter(name string) (metric.Int64Counter, error) {
	r.customMu.RLock()
	c, ok := r.customCounters[name]
	r.customMu.RUnlock()
	if ok {
		return c, nil
	}
	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()
	if c, ok = r.customCounters[name]; ok {
		return c, nil
	}
	if r.customCount() >= r.maxCustomMetrics {
		return nil, fmt.Errorf("%w (%d)", ErrMetricLimit, r.maxCustomMetrics)
	}
	c, err := r.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	r.customCounters[name] = c
	return c, nil
}

func (r *Recorder) histogram(name string) (metric.Float64Histogram, error) {
	r.customMu.RLock()
	h, ok := r.customHistograms[name]
	r.customMu.RUnlock()
	if ok {
		return h, nil
	}
	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()
	if h, ok = r.customHistograms[name]; ok {
		return h, nil
	}
	if r.customCount() >= r.maxCustomMetrics {
		return nil, fmt.Errorf("%w (%d)", ErrMetricLimit, r.maxCustomMetrics)
	}
	h, err := r.meter.Float64Histogram(name, metric.WithExplicitBucketBoundaries(r.durationBuckets...))
	if err != nil {
		return nil, err
	}
	r.customHistograms[name] = h
	return h, nil
}

// customCount must be called with customMu held.
func (r *Recorder) customCount() int {
	return len(r.customCounters) + len(r.customHistograms)
}
