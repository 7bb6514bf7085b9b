// Package telemetry bootstraps the process-wide OpenTelemetry tracer and
// meter providers, exporting over OTLP/gRPC when configured and otherwise
// leaving the global no-op providers in place.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
)

// Shutdown releases provider resources on process exit.
type Shutdown func(context.Context) error

// Init sets the global tracer and meter providers for component, named by
// FACTOTUM_OTEL_ENDPOINT. With no endpoint configured, the global no-op
// providers from the otel SDK are left in place — the executor/dispatcher
// still call Tracer()/Meter() unconditionally, they simply record nothing.
func Init(ctx context.Context, component string) (Shutdown, error) {
	endpoint := os.Getenv("FACTOTUM_OTEL_ENDPOINT")
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := sdkresource.Merge(sdkresource.Default(), sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(component),
		attribute.String("component", component),
	))
	if err != nil {
		return nil, err
	}

	dialOpts := []grpc.DialOption{grpc.WithInsecure()}

	traceCtx, cancelTrace := context.WithTimeout(ctx, 5*time.Second)
	defer cancelTrace()
	traceExp, err := otlptracegrpc.New(traceCtx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(dialOpts...),
	)
	if err != nil {
		slog.Warn("trace exporter init failed", "error", err)
		return func(context.Context) error { return nil }, nil
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricCtx, cancelMetric := context.WithTimeout(ctx, 5*time.Second)
	defer cancelMetric()
	metricExp, err := otlpmetricgrpc.New(metricCtx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithDialOption(dialOpts...),
	)
	if err != nil {
		slog.Warn("metric exporter init failed", "error", err)
		return tp.Shutdown, nil
	}
	reader := sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(10*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	slog.Info("telemetry initialized", "endpoint", endpoint, "component", component)

	return func(shutdownCtx context.Context) error {
		traceErr := tp.Shutdown(shutdownCtx)
		metricErr := mp.Shutdown(shutdownCtx)
		if traceErr != nil {
			return traceErr
		}
		return metricErr
	}, nil
}
