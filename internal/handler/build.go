package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dwsmith1983/jobtrigger/internal/alert"
	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/credential"
	"github.com/dwsmith1983/jobtrigger/internal/metrics"
	"github.com/dwsmith1983/jobtrigger/internal/telemetry"
	"github.com/dwsmith1983/jobtrigger/internal/trigger"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// NewProvider builds the credential provider selected by rt.CredentialMode.
func NewProvider(ctx context.Context, rt config.Runtime) (credential.Provider, error) {
	opts := []credential.Option{credential.WithTokenField(rt.TokenField)}

	switch rt.CredentialMode {
	case types.CredentialDirect:
		return credential.NewDirect(), nil
	case types.CredentialSecretsManager:
		p, err := credential.NewSecretsManager(ctx, rt.Region, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating secretsmanager provider: %w", err)
		}
		return p, nil
	case types.CredentialVault:
		p, err := credential.NewVault(credential.VaultConfig{
			Address:   rt.VaultAddress,
			Mount:     rt.VaultMount,
			Namespace: rt.VaultNamespace,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating vault provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported credential mode %q", rt.CredentialMode)
	}
}

// Build assembles a Handler from runtime settings. tel may be nil, in which
// case the global OpenTelemetry providers are used and nothing is flushed.
func Build(ctx context.Context, rt config.Runtime, env config.Env, logger *slog.Logger, tel *telemetry.Providers, invOpts ...trigger.InvokerOption) (*Handler, error) {
	prov, err := NewProvider(ctx, rt)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithEnv(env), WithLogger(logger)}
	if tel != nil {
		invOpts = append([]trigger.InvokerOption{trigger.WithTracerProvider(tel.Tracer)}, invOpts...)
		opts = append(opts, WithTracerProvider(tel.Tracer), WithFlush(tel.Flush))

		rec, err := metrics.New(tel.Meter)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithMetrics(rec))
	}

	alerts, err := NewAlerts(ctx, rt, logger)
	if err != nil {
		return nil, err
	}
	if alerts.Len() > 0 {
		opts = append(opts, WithAlertFunc(alerts.AlertFunc()))
	}

	return New(prov, trigger.NewInvoker(invOpts...), opts...), nil
}

// NewAlerts builds a dispatcher with a sink for each configured target. The
// dispatcher is empty when no target is set.
func NewAlerts(ctx context.Context, rt config.Runtime, logger *slog.Logger) (*alert.Dispatcher, error) {
	d := alert.NewDispatcher(logger)
	if rt.AlertTopicARN != "" {
		sink, err := alert.NewSNSSink(ctx, rt.AlertTopicARN)
		if err != nil {
			return nil, fmt.Errorf("creating SNS alert sink: %w", err)
		}
		d.AddSink(sink)
	}
	if rt.AlertWebhookURL != "" {
		d.AddSink(alert.NewWebhookSink(rt.AlertWebhookURL))
	}
	return d, nil
}
