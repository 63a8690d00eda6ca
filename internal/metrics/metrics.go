// Package metrics records trigger invocation counters and latency.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

const meterName = "github.com/dwsmith1983/jobtrigger"

// Recorder holds the instruments for one meter. A nil Recorder is a no-op.
type Recorder struct {
	invocations metric.Int64Counter
	credentials metric.Int64Counter
	duration    metric.Float64Histogram
}

// New creates a Recorder on mp, or on the global provider when mp is nil.
func New(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(meterName)

	invocations, err := m.Int64Counter("jobtrigger.invocations",
		metric.WithDescription("Trigger invocations by outcome kind."),
		metric.WithUnit("{invocation}"))
	if err != nil {
		return nil, fmt.Errorf("creating invocations counter: %w", err)
	}
	credentials, err := m.Int64Counter("jobtrigger.credential.lookups",
		metric.WithDescription("Secret store lookups by provider."),
		metric.WithUnit("{lookup}"))
	if err != nil {
		return nil, fmt.Errorf("creating credential counter: %w", err)
	}
	duration, err := m.Float64Histogram("jobtrigger.invocation.duration",
		metric.WithDescription("Wall time of a trigger invocation."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return &Recorder{invocations: invocations, credentials: credentials, duration: duration}, nil
}

// RecordInvocation counts one finished invocation and its duration.
func (r *Recorder) RecordInvocation(ctx context.Context, out types.Outcome, d time.Duration) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", string(out.Kind)),
		attribute.String("status_class", StatusClass(out.StatusCode())),
	)
	r.invocations.Add(ctx, 1, attrs)
	r.duration.Record(ctx, d.Seconds(), attrs)
}

// RecordLookup counts one secret store lookup.
func (r *Recorder) RecordLookup(ctx context.Context, provider string, ok bool) {
	if r == nil {
		return
	}
	r.credentials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("ok", ok),
	))
}

// StatusClass buckets an HTTP status as "2xx", "4xx" and so on.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", status/100)
}
