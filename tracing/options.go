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
	"fmt"
	"io"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a [Provider].
type Option func(*Provider)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(p *Provider) { p.serviceName = name }
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(p *Provider) { p.serviceVersion = version }
}

// WithEnvironment sets the deployment.environment resource attribute.
func WithEnvironment(env string) Option {
	return func(p *Provider) { p.environment = env }
}

// WithExporter selects the span exporter. endpoint is ignored by
// [ExporterNone] and [ExporterStdout].
func WithExporter(e Exporter, endpoint string) Option {
	return func(p *Provider) {
		if p.exporterSet {
			p.errs = append(p.errs, fmt.Errorf("exporter: already set to %q, cannot add %q", p.exporter, e))
			return
		}
		p.exporter = e
		p.endpoint = endpoint
		p.exporterSet = true
	}
}

// WithInsecure disables TLS for the OTLP gRPC exporter.
func WithInsecure() Option {
	return func(p *Provider) { p.insecure = true }
}

// WithSampleRate sets the fraction of root spans recorded, from 0 to 1.
// Child spans follow their parent's decision.
func WithSampleRate(rate float64) Option {
	return func(p *Provider) {
		if rate < 0 || rate > 1 {
			p.errs = append(p.errs, fmt.Errorf("sample rate: must be between 0 and 1, got %v", rate))
			return
		}
		p.sampleRate = rate
	}
}

// WithWriter sets the output of [ExporterStdout]. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(p *Provider) { p.writer = w }
}

// WithSpanProcessor adds a span processor, typically a test recorder.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(p *Provider) { p.processors = append(p.processors, sp) }
}

// WithGlobal registers the provider and the W3C trace context propagator
// as the process-wide OpenTelemetry defaults.
func WithGlobal() Option {
	return func(p *Provider) { p.global = true }
}
