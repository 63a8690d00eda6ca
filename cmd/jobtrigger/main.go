package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/jobtrigger/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "jobtrigger",
		Short: "Trigger Databricks job runs",
		Long: `jobtrigger starts a run of an existing Databricks job through the
Jobs API run-now endpoint. The bearer token is read directly from
DATABRICKS_TOKEN or looked up in AWS Secrets Manager or Vault.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewRunCmd(),
		commands.NewServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
