package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/handler"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

type runOptions struct {
	jobID      string
	params     []string
	paramsFile string
	timeout    time.Duration
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger a Databricks job run once",
		Long: `Trigger a run of the configured Databricks job and print the outcome.

Connection settings come from the environment (DATABRICKS_WORKSPACE_URL,
DATABRICKS_JOB_ID, DATABRICKS_TOKEN, CREDENTIAL_MODE). The exit status is
non-zero when the run could not be started.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(cmd.Context(), cmd.OutOrStdout(), config.OSEnv(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.jobID, "job-id", "", "job id, overrides DATABRICKS_JOB_ID")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "notebook parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.paramsFile, "params-file", "", "YAML or JSON file of notebook parameters")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "run-now request timeout (default 30s)")
	return cmd
}

func runTrigger(ctx context.Context, out io.Writer, env config.Env, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := buildRequest(opts)
	if err != nil {
		return err
	}

	h, _, cleanup, err := buildHandler(ctx, env, opts.timeout)
	if err != nil {
		return err
	}
	defer cleanup()

	resp := h.Handle(ctx, req)
	return printResponse(out, resp)
}

func buildRequest(opts runOptions) (types.InvocationRequest, error) {
	var fileParams map[string]interface{}
	if opts.paramsFile != "" {
		p, err := loadParamsFile(opts.paramsFile)
		if err != nil {
			return types.InvocationRequest{}, err
		}
		fileParams = p
	}
	flagParams, err := parseParams(opts.params)
	if err != nil {
		return types.InvocationRequest{}, err
	}
	return types.InvocationRequest{
		JobID:      types.JobID(opts.jobID),
		Parameters: mergeParams(fileParams, flagParams),
	}, nil
}

// printResponse writes a colored summary and returns an error for failures.
func printResponse(out io.Writer, resp types.Response) error {
	var body map[string]interface{}
	_ = json.Unmarshal([]byte(resp.Body), &body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		color.New(color.FgGreen).Fprintf(out, "%s (status %d)\n", handler.SuccessMessage, resp.StatusCode)
		if runID, ok := body["run_id"].(string); ok && runID != "" {
			fmt.Fprintf(out, "  run_id: %s\n", runID)
		}
		return nil
	}

	color.New(color.FgRed).Fprintf(out, "Trigger failed (status %d, %v)\n", resp.StatusCode, body["kind"])
	if msg, ok := body["error"].(string); ok && msg != "" {
		fmt.Fprintf(out, "  %s\n", msg)
	}
	return fmt.Errorf("trigger failed with status %d", resp.StatusCode)
}
