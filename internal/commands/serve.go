package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var (
		addr    string
		apiKey  string
		maxBody int64
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the trigger over HTTP (POST /api/trigger)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = os.Getenv("JOBTRIGGER_API_KEY")
			}
			return runServe(addr, apiKey, maxBody, timeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "required X-API-Key value (default $JOBTRIGGER_API_KEY)")
	cmd.Flags().Int64Var(&maxBody, "max-body", server.DefaultMaxBody, "maximum request body in bytes")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "run-now request timeout (default 30s)")
	return cmd
}

func runServe(addr, apiKey string, maxBody int64, timeout time.Duration) error {
	ctx := context.Background()
	h, logger, cleanup, err := buildHandler(ctx, config.OSEnv(), timeout)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(addr, h, logger, apiKey, maxBody)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		color.Green("Server stopped gracefully")
		return nil
	}
}
