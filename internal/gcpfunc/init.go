// Package gcpfunc provides shared initialization for the trigger Cloud Function.
package gcpfunc

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/handler"
	"github.com/dwsmith1983/jobtrigger/internal/telemetry"
)

// ExecutionIDHeader carries the Cloud Functions execution id.
const ExecutionIDHeader = "Function-Execution-Id"

// Deps holds shared dependencies for the trigger Cloud Function.
type Deps struct {
	Handler   *handler.Handler
	Telemetry *telemetry.Providers
	Logger    *slog.Logger
}

// Init creates shared dependencies from environment variables. The
// secretsmanager mode still works here when AWS credentials are present,
// but vault or direct is the usual choice on GCP.
func Init(ctx context.Context) (*Deps, error) {
	env := config.OSEnv()
	rt, err := config.LoadRuntime(env)
	if err != nil {
		return nil, err
	}

	// Cloud Logging parses "severity" from JSON lines.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: rt.LogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.LevelKey {
				a.Key = "severity"
			}
			return a
		},
	}))

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: envOrDefault("K_SERVICE", "jobtrigger"),
		Endpoint:    rt.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}

	h, err := handler.Build(ctx, rt, env, logger, tel)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	return &Deps{Handler: h, Telemetry: tel, Logger: logger}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
