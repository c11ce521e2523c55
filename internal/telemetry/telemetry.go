// telemetry — трассировка исходящих запросов через OpenTelemetry.
// Без endpoint всё сводится к no-op: глобальный провайдер не меняется.
package telemetry

import (
	"context"
	"fmt"

	"github.com/mydata-ng/privacy-client/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Shutdown сбрасывает накопленные спаны и останавливает экспортёр.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Setup настраивает OTLP/gRPC-экспортёр и глобальный TracerProvider.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (Shutdown, error) {
	const op = "telemetry/Setup"

	if cfg.OTLPEndpoint == "" {
		return noop, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return noop, fmt.Errorf("%s: exporter: %w", op, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return noop, fmt.Errorf("%s: resource: %w", op, err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Shutdown, nil
}
