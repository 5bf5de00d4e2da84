package o11y

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "lending-backend"

type Observability struct {
	Logger   *slog.Logger
	Tracer   *trace.TracerProvider
	Registry *prometheus.Registry
}

// Setup wires the shared observability stack: a JSON slog logger, an OTLP
// trace exporter, and a dedicated Prometheus registry.
func Setup(ctx context.Context, otlpEndpoint string) (*Observability, func(), error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithEndpoint(otlpEndpoint),
	)
	if err != nil {
		return nil, func() {}, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
		trace.WithSampler(trace.ParentBased(
			trace.TraceIDRatioBased(1),
		)),
	)
	otel.SetTracerProvider(tp)

	registry := prometheus.NewRegistry()

	cleanup := func() {
		tp.Shutdown(ctx)
	}

	return &Observability{
		Logger:   logger,
		Tracer:   tp,
		Registry: registry,
	}, cleanup, nil
}
