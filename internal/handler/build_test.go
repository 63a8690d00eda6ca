package handler

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), config.Runtime{CredentialMode: types.CredentialDirect})
	require.NoError(t, err)
	assert.Equal(t, string(types.CredentialDirect), p.Name())

	p, err = NewProvider(context.Background(), config.Runtime{
		CredentialMode: types.CredentialVault,
		VaultAddress:   "http://127.0.0.1:8200",
		VaultMount:     "kv",
	})
	require.NoError(t, err)
	assert.Equal(t, string(types.CredentialVault), p.Name())

	p, err = NewProvider(context.Background(), config.Runtime{
		CredentialMode: types.CredentialSecretsManager,
		Region:         "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, string(types.CredentialSecretsManager), p.Name())

	_, err = NewProvider(context.Background(), config.Runtime{CredentialMode: "keychain"})
	assert.ErrorContains(t, err, "unsupported credential mode")
}

func TestNewAlerts(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	d, err := NewAlerts(context.Background(), config.Runtime{}, logger)
	require.NoError(t, err)
	assert.Zero(t, d.Len())

	d, err = NewAlerts(context.Background(), config.Runtime{AlertWebhookURL: "https://hooks.example.com/x"}, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
}

func TestBuild_Direct(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h, err := Build(context.Background(), config.Runtime{CredentialMode: types.CredentialDirect}, config.MapEnv(nil), logger, nil)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Nil(t, h.alert)
	assert.Nil(t, h.flush)
}
