// Package config resolves trigger configuration from the invocation payload
// and the process environment.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// Environment variable names. DATABRICKS_TOKEN holds the credential
// reference: a literal token in direct mode, a secret identifier otherwise.
const (
	EnvWorkspaceURL   = "DATABRICKS_WORKSPACE_URL"
	EnvJobID          = "DATABRICKS_JOB_ID"
	EnvCredentialRef  = "DATABRICKS_TOKEN"
	EnvCredentialMode = "CREDENTIAL_MODE"
	EnvTokenField     = "SECRET_TOKEN_FIELD"
	EnvRegion         = "AWS_REGION"
	EnvVaultAddr      = "VAULT_ADDR"
	EnvVaultMount     = "VAULT_MOUNT"
	EnvVaultNamespace = "VAULT_NAMESPACE"
	EnvLogLevel       = "LOG_LEVEL"
	EnvOTLPEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvAlertTopicARN  = "ALERT_SNS_TOPIC_ARN"
	EnvAlertWebhook   = "ALERT_WEBHOOK_URL"
)

// Defaults for optional settings.
const (
	DefaultTokenField = "token"
	DefaultVaultMount = "secret"
)

// Env looks up an environment value.
type Env func(key string) (string, bool)

// OSEnv reads the process environment.
func OSEnv() Env { return os.LookupEnv }

// MapEnv serves lookups from a fixed map.
func MapEnv(m map[string]string) Env {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func (e Env) get(key string) string {
	if e == nil {
		return ""
	}
	v, _ := e(key)
	return strings.TrimSpace(v)
}

func (e Env) getOr(key, fallback string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return fallback
}

// Error reports missing or invalid configuration. Missing lists every
// absent key, not only the first one found.
type Error struct {
	Missing []string
	Reason  string
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return "missing required configuration: " + strings.Join(e.Missing, ", ")
	}
	return "invalid configuration: " + e.Reason
}

// Resolve builds the TriggerConfig for one invocation. The job id comes from
// the request when present, else from the environment. Base URL and credential
// reference always come from the environment.
func Resolve(req types.InvocationRequest, env Env) (types.TriggerConfig, error) {
	var missing []string

	baseURL := strings.TrimRight(env.get(EnvWorkspaceURL), "/")
	if baseURL == "" {
		missing = append(missing, EnvWorkspaceURL)
	}

	jobID := strings.TrimSpace(string(req.JobID))
	if jobID == "" {
		jobID = env.get(EnvJobID)
	}
	if jobID == "" {
		missing = append(missing, EnvJobID)
	}

	ref := env.get(EnvCredentialRef)
	if ref == "" {
		missing = append(missing, EnvCredentialRef)
	}

	if len(missing) > 0 {
		return types.TriggerConfig{}, &Error{Missing: missing}
	}

	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.TriggerConfig{}, &Error{Reason: fmt.Sprintf("%s must be an absolute http(s) URL", EnvWorkspaceURL)}
	}

	return types.TriggerConfig{
		BaseURL:       baseURL,
		JobID:         jobID,
		CredentialRef: ref,
	}, nil
}

// Runtime holds settings read once when the process starts: which credential
// source to build and how to reach it.
type Runtime struct {
	CredentialMode types.CredentialMode
	TokenField     string
	Region         string
	VaultAddress   string
	VaultMount     string
	VaultNamespace string
	LogLevel       slog.Level
	OTLPEndpoint   string

	// Failure notification targets; both optional.
	AlertTopicARN   string
	AlertWebhookURL string
}

// LoadRuntime reads process-level settings. AWS_REGION is required for the
// secretsmanager mode and VAULT_ADDR for the vault mode.
func LoadRuntime(env Env) (Runtime, error) {
	mode, err := types.ParseCredentialMode(env.get(EnvCredentialMode))
	if err != nil {
		return Runtime{}, &Error{Reason: fmt.Sprintf("%s: %v", EnvCredentialMode, err)}
	}

	rt := Runtime{
		CredentialMode: mode,
		TokenField:     env.getOr(EnvTokenField, DefaultTokenField),
		Region:         env.get(EnvRegion),
		VaultAddress:   env.get(EnvVaultAddr),
		VaultMount:     env.getOr(EnvVaultMount, DefaultVaultMount),
		VaultNamespace: env.get(EnvVaultNamespace),
		OTLPEndpoint:   env.get(EnvOTLPEndpoint),

		AlertTopicARN:   env.get(EnvAlertTopicARN),
		AlertWebhookURL: env.get(EnvAlertWebhook),
	}

	var missing []string
	switch mode {
	case types.CredentialSecretsManager:
		if rt.Region == "" {
			missing = append(missing, EnvRegion)
		}
	case types.CredentialVault:
		if rt.VaultAddress == "" {
			missing = append(missing, EnvVaultAddr)
		}
	}
	if len(missing) > 0 {
		return Runtime{}, &Error{Missing: missing}
	}

	if rt.AlertWebhookURL != "" {
		u, err := url.Parse(rt.AlertWebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Runtime{}, &Error{Reason: fmt.Sprintf("%s must be an absolute http(s) URL", EnvAlertWebhook)}
		}
	}

	if lvl := env.get(EnvLogLevel); lvl != "" {
		if err := rt.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return Runtime{}, &Error{Reason: fmt.Sprintf("%s: %v", EnvLogLevel, err)}
		}
	}

	return rt, nil
}
