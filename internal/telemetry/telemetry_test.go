package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_NoEndpoint(t *testing.T) {
	p, err := Setup(context.Background(), Config{ServiceName: "jobtrigger-test"})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.NotNil(t, p.Tracer)
	assert.NotNil(t, p.Meter)
	assert.Same(t, p.Tracer, otel.GetTracerProvider())
	assert.NoError(t, p.Flush(context.Background()))
}

func TestFlush_ExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	p := &Providers{Tracer: tp}
	defer func() { _ = p.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()

	require.NoError(t, p.Flush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "op", spans[0].Name)
}

func TestNilProviders(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))

	empty := &Providers{}
	assert.NoError(t, empty.Flush(context.Background()))
	assert.NoError(t, empty.Shutdown(context.Background()))
}
