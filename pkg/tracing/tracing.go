// Package tracing installs OpenTelemetry tracing for the service.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/inkcheck/pkg/logger"
)

const (
	tracerName     = "github.com/okian/inkcheck"
	serviceName    = "inkcheck"
	serviceVersion = "0.1.0"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Init installs an OTLP/gRPC tracer provider. An empty endpoint leaves the
// global no-op provider in place.
func Init(ctx context.Context, endpoint string, log logger.Logger) (ShutdownFunc, error) {
	if endpoint == "" {
		log.Info(ctx, "tracing disabled (no otlp_endpoint set)")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled", logger.String("endpoint", endpoint))
	return tp.Shutdown, nil
}

// StartSpan starts a span on the service tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// Fail records err on span and marks it as an error.
func Fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SessionID(id string) attribute.KeyValue {
	return attribute.String("session.id", id)
}

func Risk(risk int) attribute.KeyValue {
	return attribute.Int("session.risk", risk)
}

func PayloadBytes(n int) attribute.KeyValue {
	return attribute.Int("payload.bytes", n)
}

func Rules(ids []string) attribute.KeyValue {
	return attribute.StringSlice("session.rules", ids)
}
