package main

import (
	"path/filepath"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// NewJobTriggerStack deploys the trigger Lambda with its environment and,
// in secretsmanager mode, read access to the token secret.
func NewJobTriggerStack(scope constructs.Construct, id string, cfg StackConfig) awscdk.Stack {
	stack := awscdk.NewStack(scope, &id, nil)

	env := map[string]*string{
		"CREDENTIAL_MODE": jsii.String(cfg.CredentialMode),
		"LOG_LEVEL":       jsii.String(cfg.LogLevel),
	}
	if cfg.WorkspaceURL != "" {
		env["DATABRICKS_WORKSPACE_URL"] = jsii.String(cfg.WorkspaceURL)
	}
	if cfg.JobID != "" {
		env["DATABRICKS_JOB_ID"] = jsii.String(cfg.JobID)
	}
	if cfg.TokenField != "" {
		env["SECRET_TOKEN_FIELD"] = jsii.String(cfg.TokenField)
	}
	if cfg.OTLPEndpoint != "" {
		env["OTEL_EXPORTER_OTLP_ENDPOINT"] = jsii.String(cfg.OTLPEndpoint)
	}

	// 1. Trigger function
	fn := awslambda.NewFunction(stack, jsii.String("trigger"), &awslambda.FunctionProps{
		FunctionName: jsii.String(cfg.FunctionName),
		Runtime:      awslambda.Runtime_PROVIDED_AL2023(),
		Handler:      jsii.String("bootstrap"),
		Code:         awslambda.Code_FromAsset(jsii.String(filepath.Join(cfg.LambdaDistDir, "trigger")), nil),
		Architecture: awslambda.Architecture_ARM_64(),
		MemorySize:   jsii.Number(cfg.MemorySize),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(cfg.Timeout)),
		Environment:  &env,
		LogRetention: logRetentionDays(cfg.LogRetentionDays),
	})

	// 2. Token secret
	if cfg.CredentialMode == "secretsmanager" && cfg.TokenSecretName != "" {
		secret := awssecretsmanager.Secret_FromSecretNameV2(stack, jsii.String("TokenSecret"), jsii.String(cfg.TokenSecretName))
		secret.GrantRead(fn, nil)
		fn.AddEnvironment(jsii.String("DATABRICKS_TOKEN"), secret.SecretName(), nil)
	}

	// 3. Failure alert topic
	if cfg.AlertTopic {
		topic := awssns.NewTopic(stack, jsii.String("AlertTopic"), &awssns.TopicProps{
			TopicName: jsii.String(cfg.FunctionName + "-alerts"),
		})
		topic.GrantPublish(fn)
		fn.AddEnvironment(jsii.String("ALERT_SNS_TOPIC_ARN"), topic.TopicArn(), nil)
		awscdk.NewCfnOutput(stack, jsii.String("AlertTopicArn"), &awscdk.CfnOutputProps{
			Value: topic.TopicArn(),
		})
	}
	if cfg.AlertWebhookURL != "" {
		fn.AddEnvironment(jsii.String("ALERT_WEBHOOK_URL"), jsii.String(cfg.AlertWebhookURL), nil)
	}

	// 4. Optional IAM-authenticated function URL
	if cfg.EnableFunctionURL {
		url := fn.AddFunctionUrl(&awslambda.FunctionUrlOptions{
			AuthType: awslambda.FunctionUrlAuthType_AWS_IAM,
		})
		awscdk.NewCfnOutput(stack, jsii.String("FunctionUrl"), &awscdk.CfnOutputProps{
			Value: url.Url(),
		})
	}

	// 5. Stack outputs
	awscdk.NewCfnOutput(stack, jsii.String("FunctionName"), &awscdk.CfnOutputProps{
		Value: fn.FunctionName(),
	})
	awscdk.NewCfnOutput(stack, jsii.String("FunctionArn"), &awscdk.CfnOutputProps{
		Value: fn.FunctionArn(),
	})

	return stack
}

func logRetentionDays(days float64) awslogs.RetentionDays {
	switch days {
	case 1:
		return awslogs.RetentionDays_ONE_DAY
	case 3:
		return awslogs.RetentionDays_THREE_DAYS
	case 5:
		return awslogs.RetentionDays_FIVE_DAYS
	case 7:
		return awslogs.RetentionDays_ONE_WEEK
	case 14:
		return awslogs.RetentionDays_TWO_WEEKS
	case 30:
		return awslogs.RetentionDays_ONE_MONTH
	case 60:
		return awslogs.RetentionDays_TWO_MONTHS
	case 90:
		return awslogs.RetentionDays_THREE_MONTHS
	case 365:
		return awslogs.RetentionDays_ONE_YEAR
	default:
		return awslogs.RetentionDays_ONE_WEEK
	}
}
