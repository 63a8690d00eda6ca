package gcpfunc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_VaultRequiresAddress(t *testing.T) {
	t.Setenv("CREDENTIAL_MODE", "vault")
	t.Setenv("VAULT_ADDR", "")

	_, err := Init(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VAULT_ADDR")
}

func TestInit_Direct(t *testing.T) {
	t.Setenv("CREDENTIAL_MODE", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	d, err := Init(t.Context())
	require.NoError(t, err)
	defer func() { _ = d.Telemetry.Shutdown(t.Context()) }()
	assert.NotNil(t, d.Handler)
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("K_SERVICE", "")
	assert.Equal(t, "jobtrigger", envOrDefault("K_SERVICE", "jobtrigger"))
	t.Setenv("K_SERVICE", "trigger-fn")
	assert.Equal(t, "trigger-fn", envOrDefault("K_SERVICE", "jobtrigger"))
}
