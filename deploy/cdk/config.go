package main

// StackConfig holds configuration for the jobtrigger CDK stack.
type StackConfig struct {
	FunctionName     string
	MemorySize       float64
	Timeout          float64
	LambdaDistDir    string
	LogRetentionDays float64
	LogLevel         string

	WorkspaceURL string
	JobID        string

	// CredentialMode is "direct" or "secretsmanager". In secretsmanager mode
	// TokenSecretName names the secret and the function is granted read access.
	CredentialMode  string
	TokenSecretName string
	TokenField      string

	OTLPEndpoint      string
	EnableFunctionURL bool

	// AlertTopic creates an SNS topic for failure notifications.
	AlertTopic      bool
	AlertWebhookURL string
}

// DefaultConfig returns a StackConfig with sensible defaults. The timeout
// covers one secret lookup and one run-now request at their 30s bounds.
func DefaultConfig() StackConfig {
	return StackConfig{
		FunctionName:     "jobtrigger",
		MemorySize:       128,
		Timeout:          75,
		LambdaDistDir:    "../dist/lambda",
		LogRetentionDays: 7,
		LogLevel:         "info",
		CredentialMode:   "secretsmanager",
		TokenField:       "token",
	}
}
