// Package observability installs the process-wide OpenTelemetry tracer
// provider. Spans come from otelgin on requests, the GORM tracing plugin on
// queries, and the services and reply generator around provider calls.
package observability

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/ai-companion-backend/internal/config"
)

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Build info attached to every span.
type Build struct {
	Version     string
	Environment string // gin mode: debug, release or test
}

// Seams replaced in tests.
var (
	newOTLPClient = otlptracegrpc.NewClient

	newExporter = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newResource = func(ctx context.Context, service string, b Build) (*resource.Resource, error) {
		return resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(service),
				semconv.ServiceVersion(b.Version),
				semconv.DeploymentEnvironment(b.Environment),
			),
		)
	}
)

// SetupTracing exports spans over OTLP/gRPC when cfg.Enabled and returns
// the matching shutdown. Disabled tracing returns a no-op shutdown and
// leaves the global provider untouched.
func SetupTracing(ctx context.Context, cfg config.OTELConfig, b Build, log zerolog.Logger) (ShutdownFunc, error) {
	if !cfg.Enabled {
		log.Debug().Msg("tracing disabled")
		return noopShutdown, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newExporter(ctx, newOTLPClient(opts...))
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg.ServiceName, b)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	log.Info().
		Str("endpoint", cfg.Endpoint).
		Bool("insecure", cfg.Insecure).
		Float64("sample_ratio", cfg.SampleRatio).
		Msg("tracing enabled")
	return tp.Shutdown, nil
}
