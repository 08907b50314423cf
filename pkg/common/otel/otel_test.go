package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/prover-cli/pkg/common/logger"
)

func TestInitTelemetry_DisabledReturnsNoop(t *testing.T) {
	providers, teardown, err := InitTelemetry(logger.Noop(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, teardown)
	defer teardown(context.Background())

	ctx, span := providers.Tracer.Tracer("test").Start(context.Background(), "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.Equal(t, "00000000000000000000000000000000", GetTraceID(ctx))
}

func TestGetTraceID_ValidSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := AddSpan(context.Background(), tp.Tracer("test"), "valid")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}

func TestNewResource_CarriesServiceName(t *testing.T) {
	res := NewResource("prover-cli")

	var found bool
	for _, kv := range res.Attributes() {
		if string(kv.Key) == "service.name" && kv.Value.AsString() == "prover-cli" {
			found = true
		}
	}
	assert.True(t, found)
}
