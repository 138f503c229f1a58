// Package telemetry bootstraps OpenTelemetry tracing for the engine, so
// that a validate() call and every CRL/OCSP fetch it triggers (via
// fetcher.HTTPFetcher's otelhttp instrumentation) share one trace.
package telemetry

import (
	"context"

	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls where traces are exported and under what service name.
type Config struct {
	ServiceName    string
	CollectorAddr  string // e.g. "localhost:4317"; empty disables export
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Setup installs a global TracerProvider exporting via OTLP/gRPC to
// cfg.CollectorAddr, and bridges OTel's internal diagnostic logging to
// the standard logr interface via go-logr/stdr (a teacher dependency
// otherwise without a home once the ACME gRPC services were dropped).
func Setup(ctx context.Context, cfg Config) (trace.Tracer, Shutdown, error) {
	otel.SetLogger(stdr.New(nil))

	if cfg.CollectorAddr == "" {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp.Tracer(cfg.ServiceName), func(context.Context) error { return tp.Shutdown(ctx) }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.CollectorAddr), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Tracer(cfg.ServiceName), tp.Shutdown, nil
}
