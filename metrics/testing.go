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
	"strings"
	"testing"
	"time"
)

// TestingRecorder creates a [Recorder] on a private registry and shuts it
// down when t finishes.
func TestingRecorder(t testing.TB, opts ...Option) *Recorder {
	t.Helper()
	r, err := New(append([]Option{WithServiceName("test")}, opts...)...)
	if err != nil {
		t.Fatalf("TestingRecorder: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Shutdown(ctx); err != nil {
			t.Logf("TestingRecorder: shutdown: %v", err)
		}
	})
	return r
}

// Sample is one gathered series.
type Sample struct {
	Labels map[string]string
	Value  float64 // counter value, or histogram sample count
}

// Gather returns the series of every exported family whose name starts with
// prefix, for example "lattice_requests_total".
func Gather(t testing.TB, r *Recorder, prefix string) []Sample {
	t.Helper()
	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var out []Sample
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), prefix) {
			continue
		}
		for _, m := range f.GetMetric() {
			s := Sample{Labels: make(map[string]string, len(m.GetLabel()))}
			for _, l := range m.GetLabel() {
				s.Labels[l.GetName()] = l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				s.Value = float64(m.GetHistogram().GetSampleCount())
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			}
			out = append(out, s)
		}
	}
	return out
}

// Sum adds the values of samples whose labels include match.
func Sum(samples []Sample, match map[string]string) float64 {
	var total float64
next:
	for _, s := range samples {
		for k, v := range match {
			if s.Labels[k] != v {
				continue next
			}
		}
		total += s.Value
	}
	return total
}
