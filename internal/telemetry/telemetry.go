// Package telemetry wires OpenTelemetry tracing and metrics providers.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

// Config controls exporter setup. With an empty Endpoint the providers are
// created without exporters: spans and metrics are recorded but never sent.
type Config struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// Providers owns the SDK tracer and meter providers.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Setup builds both providers, installs them as globals and sets the W3C
// trace-context propagator.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.Endpoint != "" {
		texOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		mexOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			texOpts = append(texOpts, otlptracegrpc.WithInsecure())
			mexOpts = append(mexOpts, otlpmetricgrpc.WithInsecure())
		}

		texp, err := otlptracegrpc.New(ctx, texOpts...)
		if err != nil {
			return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
		}
		mexp, err := otlpmetricgrpc.New(ctx, mexOpts...)
		if err != nil {
			_ = texp.Shutdown(ctx)
			return nil, fmt.Errorf("create OTLP metric exporter: %w", err)
		}

		traceOpts = append(traceOpts, sdktrace.WithBatcher(texp))
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(mexp)))
	}

	p := &Providers{
		Tracer: sdktrace.NewTracerProvider(traceOpts...),
		Meter:  sdkmetric.NewMeterProvider(meterOpts...),
	}

	otel.SetTracerProvider(p.Tracer)
	otel.SetMeterProvider(p.Meter)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

// Flush exports pending spans and metrics. Lambda freezes the process
// between invocations, so handlers flush before returning.
func (p *Providers) Flush(ctx context.Context) error {
	if p == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	if p.Tracer != nil {
		g.Go(func() error { return p.Tracer.ForceFlush(ctx) })
	}
	if p.Meter != nil {
		g.Go(func() error { return p.Meter.ForceFlush(ctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("flushing telemetry: %w", err)
	}
	return nil
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	if p.Tracer != nil {
		g.Go(func() error { return p.Tracer.Shutdown(ctx) })
	}
	if p.Meter != nil {
		g.Go(func() error { return p.Meter.Shutdown(ctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("shutting down telemetry: %w", err)
	}
	return nil
}
