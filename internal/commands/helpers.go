// Package commands implements the CLI subcommands for the jobtrigger binary.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/handler"
	"github.com/dwsmith1983/jobtrigger/internal/telemetry"
	"github.com/dwsmith1983/jobtrigger/internal/trigger"
)

// buildHandler assembles a Handler from the process environment. The
// returned cleanup flushes and stops telemetry.
func buildHandler(ctx context.Context, env config.Env, timeout time.Duration) (*handler.Handler, *slog.Logger, func(), error) {
	rt, err := config.LoadRuntime(env)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: rt.LogLevel}))

	tel, err := telemetry.Setup(ctx, telemetry.Config{ServiceName: "jobtrigger", Endpoint: rt.OTLPEndpoint})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	cleanup := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}

	var invOpts []trigger.InvokerOption
	if timeout > 0 {
		invOpts = append(invOpts, trigger.WithTimeout(timeout))
	}
	h, err := handler.Build(ctx, rt, env, logger, tel, invOpts...)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return h, logger, cleanup, nil
}

// parseParams turns repeated key=value flags into a parameter map.
func parseParams(pairs []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", p)
		}
		params[k] = v
	}
	return params, nil
}

// loadParamsFile reads a YAML or JSON mapping of notebook parameters.
func loadParamsFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var params map[string]interface{}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return params, nil
}

// mergeParams layers flag parameters over file parameters.
func mergeParams(base, override map[string]interface{}) map[string]interface{} {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
