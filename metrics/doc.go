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

// Package metrics records dispatcher metrics through an OpenTelemetry meter
// exported in Prometheus format.
//
// A [Recorder] owns its own Prometheus registry, so several recorders can
// coexist in one process. Serve [Recorder.Handler] to expose the registry.
//
//	rec := metrics.MustNew(metrics.WithServiceName("orders"))
//	mux.Handle("/metrics", rec.Handler())
//
// Built-in instruments:
//
//   - lattice.requests, lattice.request.duration, lattice.request.errors and
//     lattice.active_requests, labeled by method, route template and status
//   - lattice.provider.calls and lattice.provider.duration, labeled by
//     provider name and outcome
//   - lattice.cache.lookups, labeled by route and hit/miss
//   - lattice.guard.denials, labeled by route and status
//
// Custom counters and histograms can be added with [Recorder.AddCounter] and
// [Recorder.RecordHistogram]; their names are validated and capped by
// [WithMaxCustomMetrics].
//
// All methods are safe for concurrent use and are no-ops on a nil *Recorder.
package metrics
