package main

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
)

func main() {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	cfg := DefaultConfig()

	if name := os.Getenv("JOBTRIGGER_FUNCTION_NAME"); name != "" {
		cfg.FunctionName = name
	}
	cfg.WorkspaceURL = os.Getenv("DATABRICKS_WORKSPACE_URL")
	cfg.JobID = os.Getenv("DATABRICKS_JOB_ID")
	if mode := os.Getenv("CREDENTIAL_MODE"); mode != "" {
		cfg.CredentialMode = mode
	}
	cfg.TokenSecretName = os.Getenv("DATABRICKS_TOKEN_SECRET")
	if field := os.Getenv("SECRET_TOKEN_FIELD"); field != "" {
		cfg.TokenField = field
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.EnableFunctionURL = os.Getenv("JOBTRIGGER_FUNCTION_URL") == "true"
	cfg.AlertTopic = os.Getenv("JOBTRIGGER_ALERT_TOPIC") == "true"
	cfg.AlertWebhookURL = os.Getenv("ALERT_WEBHOOK_URL")

	stackName := "JobTriggerStack"
	if name := os.Getenv("JOBTRIGGER_STACK_NAME"); name != "" {
		stackName = name
	}

	NewJobTriggerStack(app, stackName, cfg)
	app.Synth(nil)
}
