package types

// TriggerConfig identifies what to trigger and how to authenticate. It is
// built once per invocation by the configuration resolver and passed by value.
type TriggerConfig struct {
	// BaseURL is the workspace root with any trailing slash removed.
	BaseURL string
	// JobID is the Databricks job to run.
	JobID string
	// CredentialRef is either the token itself or a secret identifier,
	// depending on the configured CredentialMode.
	CredentialRef string
}
