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

// Package tracing builds the OpenTelemetry tracer provider of a lattice
// process: a resource naming the service, a parent-based ratio sampler and
// one span exporter.
//
// Exporters:
//
//   - [ExporterNone]: spans are sampled and dropped
//   - [ExporterStdout]: pretty-printed JSON, for development
//   - [ExporterOTLP]: OTLP over gRPC, endpoint host:port
//   - [ExporterOTLPHTTP]: OTLP over HTTP, endpoint http(s)://host:port
//
// Basic usage:
//
//	tp, err := tracing.New(ctx,
//	    tracing.WithServiceName("orders"),
//	    tracing.WithExporter(tracing.ExporterOTLP, "collector:4317"),
//	    tracing.WithSampleRate(0.25),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tp.Shutdown(context.Background())
//
//	a := app.MustNew(app.WithTracerProvider(tp))
package tracing
