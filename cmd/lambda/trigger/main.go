// trigger Lambda starts a Databricks job run and reports the outcome as an
// API Gateway style response.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	inthandler "github.com/dwsmith1983/jobtrigger/internal/handler"
	intlambda "github.com/dwsmith1983/jobtrigger/internal/lambda"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// handleEvent decodes the event and runs the trigger. Initialization errors
// are rendered like any other failure so the function always returns a
// well-formed response.
func handleEvent(ctx context.Context, getDeps func() (*intlambda.Deps, error), raw json.RawMessage) (types.Response, error) {
	d, err := getDeps()
	if err != nil {
		slog.Error("initialization failed", "error", err)
		return inthandler.Render(inthandler.OutcomeFromError(err)), nil
	}

	req, err := intlambda.DecodeEvent(raw)
	if err != nil {
		d.Logger.Warn("rejecting event", "invocationID", inthandler.InvocationID(ctx), "error", err)
		return inthandler.Render(inthandler.OutcomeFromError(err)), nil
	}
	return d.Handler.Handle(ctx, req), nil
}

func handler(ctx context.Context, raw json.RawMessage) (types.Response, error) {
	return handleEvent(ctx, intlambda.GetDeps, raw)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
