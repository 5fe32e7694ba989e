// Package telemetry wires the OpenTelemetry metrics pipeline.
//
// Instruments throughout ragd record against the process-wide MeterProvider.
// Setup installs an SDK provider backed by a Prometheus exporter so those
// recordings surface on the /metrics endpoint; without it the global
// provider is a no-op and every recording is dropped.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Setup builds a MeterProvider exporting through reg and installs it as the
// process-wide provider. The caller owns the provider's shutdown.
func Setup(reg prometheus.Registerer, serviceName, serviceVersion string) (*sdkmetric.MeterProvider, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	return provider, nil
}
