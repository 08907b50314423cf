package otel

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// NewResource creates a new OpenTelemetry resource with service name and any
// extra attributes.
func NewResource(serviceName string, extra ...attribute.KeyValue) *resource.Resource {
	attrs := make([]attribute.KeyValue, 0, len(extra)+1)
	attrs = append(attrs, semconv.ServiceNameKey.String(serviceName))
	attrs = append(attrs, extra...)
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}
