// Copyright 2024 Painter Authors
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

// Package tracing wraps the pipeline's phases (build, analyze, ingest)
// in OpenTelemetry spans (C10). For local runs a stdout exporter is
// enough to inspect where time goes; a production deployment would
// swap the exporter without touching the call sites below.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/crates-graph/painter"

// Setup installs a stdout-exporting TracerProvider as the global
// provider and returns a shutdown func the caller must run before
// exit to flush pending spans. Passing a nil w discards span output
// entirely (io.Discard), which test callers use to keep output clean.
func Setup(ctx context.Context, w io.Writer) (shutdown func(context.Context) error, err error) {
	if w == nil {
		w = io.Discard
	}
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(semconv.ServiceName("painter")))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Start begins a span for one pipeline phase, named after the
// component it covers ("build", "analyze", "ingest").
func Start(ctx context.Context, phase, crate, version string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, phase, trace.WithAttributes(
		attribute.String("crate.name", crate),
		attribute.String("crate.version", version),
	))
}
