package lambda

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/handler"
	"github.com/dwsmith1983/jobtrigger/internal/telemetry"
)

// Deps holds shared dependencies for the trigger Lambda.
type Deps struct {
	Handler   *handler.Handler
	Runtime   config.Runtime
	Telemetry *telemetry.Providers
	Logger    *slog.Logger
}

// Init creates shared dependencies from environment variables.
// Reads: CREDENTIAL_MODE, SECRET_TOKEN_FIELD, AWS_REGION, VAULT_ADDR,
// VAULT_MOUNT, VAULT_NAMESPACE, LOG_LEVEL, OTEL_EXPORTER_OTLP_ENDPOINT,
// OTEL_EXPORTER_OTLP_INSECURE, OTEL_SERVICE_NAME, ALERT_SNS_TOPIC_ARN,
// ALERT_WEBHOOK_URL.
// Per-invocation settings (workspace URL, job id, token) are read by the handler.
func Init(ctx context.Context) (*Deps, error) {
	env := config.OSEnv()
	rt, err := config.LoadRuntime(env)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: rt.LogLevel,
	}))

	insecure, _ := strconv.ParseBool(envOrDefault("OTEL_EXPORTER_OTLP_INSECURE", "false"))
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: envOrDefault("OTEL_SERVICE_NAME", "jobtrigger"),
		Endpoint:    rt.OTLPEndpoint,
		Insecure:    insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}

	h, err := handler.Build(ctx, rt, env, logger, tel)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	logger.Info("trigger initialized", "credentialMode", rt.CredentialMode, "telemetryExport", rt.OTLPEndpoint != "")

	return &Deps{
		Handler:   h,
		Runtime:   rt,
		Telemetry: tel,
		Logger:    logger,
	}, nil
}

var (
	deps     *Deps
	depsOnce sync.Once
	depsErr  error
)

// GetDeps initializes Deps on first use and returns the same result for the
// lifetime of the execution environment.
func GetDeps() (*Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = Init(context.Background())
	})
	return deps, depsErr
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
