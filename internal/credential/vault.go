package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwsmith1983/jobtrigger/pkg/types"
	vault "github.com/hashicorp/vault/api"
)

// VaultKV is the subset of the Vault KV v2 client used by Vault.
type VaultKV interface {
	Get(ctx context.Context, secretPath string) (*vault.KVSecret, error)
}

// VaultConfig locates a Vault KV v2 mount. Empty Address and Token fall back
// to VAULT_ADDR and VAULT_TOKEN as read by the Vault client.
type VaultConfig struct {
	Address   string
	Token     string
	Mount     string
	Namespace string
}

// Vault reads the token from a HashiCorp Vault KV v2 secret.
type Vault struct {
	kv VaultKV
	settings
}

// NewVault creates a provider backed by a Vault client with retries disabled.
func NewVault(cfg VaultConfig, opts ...Option) (*Vault, error) {
	s := newSettings(opts)

	vc := vault.DefaultConfig()
	if vc.Error != nil {
		return nil, fmt.Errorf("vault: reading environment: %w", vc.Error)
	}
	if cfg.Address != "" {
		vc.Address = strings.TrimRight(cfg.Address, "/")
	}
	vc.MaxRetries = 0
	vc.Timeout = s.timeout

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("vault: creating client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}
	return &Vault{kv: client.KVv2(mount), settings: s}, nil
}

// NewVaultWithKV creates a provider around an existing KV client (useful for testing).
func NewVaultWithKV(kv VaultKV, opts ...Option) *Vault {
	return &Vault{kv: kv, settings: newSettings(opts)}
}

// Name returns the provider identifier.
func (p *Vault) Name() string { return string(types.CredentialVault) }

// Fetch reads "path" or "path#field" from the KV mount.
func (p *Vault) Fetch(ctx context.Context, ref string) (types.Credential, error) {
	path, field := splitRef(ref, p.field)
	path = strings.Trim(path, "/")
	if path == "" {
		return "", &Error{Kind: types.KindCredentialNotFound, Err: fmt.Errorf("empty secret path")}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	secret, err := p.kv.Get(ctx, path)
	if err != nil {
		var respErr *vault.ResponseError
		switch {
		case errors.Is(err, vault.ErrSecretNotFound):
			return "", &Error{Kind: types.KindCredentialNotFound, SecretID: path, Err: err}
		case errors.As(err, &respErr) && respErr.StatusCode == 404:
			return "", &Error{Kind: types.KindCredentialNotFound, SecretID: path, Err: err}
		}
		return "", lookupError(ctx, path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", &Error{Kind: types.KindCredentialMalformed, SecretID: path, Err: fmt.Errorf("secret has no data")}
	}
	return tokenFromDocument(secret.Data, path, field)
}
