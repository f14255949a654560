package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// GetMeterProvider returns the globally registered meter provider. Before
// InitTelemetry runs this is a no-op provider, so callers never need a nil check.
func GetMeterProvider() metric.MeterProvider { return otel.GetMeterProvider() }

// NewMeterProvider creates a new meter provider with the given service name.
// It has no reader attached and is meant for processes running without an
// exporter.
func NewMeterProvider(serviceName string) metric.MeterProvider {
	return sdkmetric.NewMeterProvider(sdkmetric.WithResource(NewResource(serviceName)))
}

// NewResource creates a new OpenTelemetry resource with service name.
func NewResource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
}
