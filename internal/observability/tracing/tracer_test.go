package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestPurpose: Validates that a disabled provider installs nothing and shuts down cleanly.
// Scope: Unit Test
// Expected: Enabled is false; Shutdown returns nil.
// Test Case ID: TRC-01
func TestTracing_Disabled(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false, ServiceName: "terrier"})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, Sampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, Sampler(1.5).Description(), "AlwaysOnSampler")
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

// TestPurpose: Validates that failures are recorded on the span.
// Scope: Unit Test
// Expected: The span ends with an error status and an exception event.
// Test Case ID: TRC-02
func TestRecordFailure(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "authz.Resolve")
	RecordFailure(span, errors.New("db down"), "role resolution failed")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "role resolution failed", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}
