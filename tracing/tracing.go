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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
)

// Exporter names a span exporter.
type Exporter string

// Supported exporters.
const (
	ExporterNone     Exporter = "none"
	ExporterStdout   Exporter = "stdout"
	ExporterOTLP     Exporter = "otlp"
	ExporterOTLPHTTP Exporter = "otlp-http"
)

// ErrUnknownExporter is returned for an unsupported exporter name.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// ParseExporter validates an exporter name. The empty name means
// [ExporterNone].
func ParseExporter(name string) (Exporter, error) {
	switch e := Exporter(strings.ToLower(strings.TrimSpace(name))); e {
	case "":
		return ExporterNone, nil
	case ExporterNone, ExporterStdout, ExporterOTLP, ExporterOTLPHTTP:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// Provider is a configured OpenTelemetry tracer provider. It implements
// [trace.TracerProvider].
type Provider struct {
	embedded.TracerProvider

	serviceName    string
	serviceVersion string
	environment    string
	exporter       Exporter
	exporterSet    bool
	endpoint       string
	insecure       bool
	sampleRate     float64
	writer         io.Writer
	processors     []sdktrace.SpanProcessor
	global         bool
	errs           []error

	sdk *sdktrace.TracerProvider
}

// New builds a provider. OTLP exporters connect lazily; ctx bounds their
// setup only.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	p := &Provider{
		serviceName: "lattice",
		exporter:    ExporterNone,
		sampleRate:  1,
		writer:      os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if _, err := ParseExporter(string(p.exporter)); err != nil {
		p.errs = append(p.errs, err)
	}
	if (p.exporter == ExporterOTLP || p.exporter == ExporterOTLPHTTP) && p.endpoint == "" {
		p.errs = append(p.errs, fmt.Errorf("exporter %q requires an endpoint", p.exporter))
	}
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("tracing: %w", errors.Join(p.errs...))
	}

	exp, err := p.newExporter(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracing: create %s exporter: %w", p.exporter, err)
	}

	sdkOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(p.resource()),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.sampleRate))),
	}
	if exp != nil {
		sdkOpts = append(sdkOpts, sdktrace.WithBatcher(exp))
	}
	for _, sp := range p.processors {
		sdkOpts = append(sdkOpts, sdktrace.WithSpanProcessor(sp))
	}
	p.sdk = sdktrace.NewTracerProvider(sdkOpts...)

	if p.global {
		otel.SetTracerProvider(p.sdk)
		otel.SetTextMapPropagator(Propagator())
	}
	return p, nil
}

// MustNew is like [New] but panics on error.
func MustNew(ctx context.Context, opts ...Option) *Provider {
	p, err := New(ctx, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) newExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	switch p.exporter {
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(p.writer), stdouttrace.WithPrettyPrint())
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.endpoint)}
		if p.insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterOTLPHTTP:
		endpoint, insecure := splitEndpoint(p.endpoint)
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if insecure || p.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, nil
	}
}

// splitEndpoint strips the scheme and path of an OTLP HTTP endpoint. A
// plain http scheme means no TLS.
func splitEndpoint(endpoint string) (string, bool) {
	insecure := false
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint, insecure = rest, true
	} else if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = rest
	}
	if i := strings.IndexByte(endpoint, '/'); i >= 0 {
		endpoint = endpoint[:i]
	}
	return endpoint, insecure
}

func (p *Provider) resource() *resource.Resource {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(p.serviceName),
	}
	if p.serviceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(p.serviceVersion))
	}
	if p.environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(p.environment))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

// Tracer implements [trace.TracerProvider].
func (p *Provider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return p.sdk.Tracer(name, opts...)
}

// Exporter returns the configured exporter.
func (p *Provider) Exporter() Exporter { return p.exporter }

// ForceFlush exports every ended span.
func (p *Provider) ForceFlush(ctx context.Context) error { return p.sdk.ForceFlush(ctx) }

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracing: shutdown: %w", err)
	}
	return nil
}

// Propagator returns the W3C trace context and baggage propagator.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

var _ trace.TracerProvider = (*Provider)(nil)
