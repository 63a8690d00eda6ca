package types

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies the outcome of a trigger invocation.
type Kind string

// Kind values enumerate the outcome taxonomy. KindSuccess is the only
// non-failure kind.
const (
	KindSuccess                Kind = "success"
	KindConfig                 Kind = "config_error"
	KindCredentialNotFound     Kind = "credential_not_found"
	KindCredentialUnreachable  Kind = "credential_unreachable"
	KindCredentialMalformed    Kind = "credential_malformed"
	KindCredentialFieldMissing Kind = "credential_field_missing"
	KindNetwork                Kind = "network_error"
	KindTimeout                Kind = "timeout"
	KindRemote                 Kind = "remote_error"
	KindMalformedResponse      Kind = "malformed_response"
	KindInternal               Kind = "internal_error"
)

// StatusBadGatewayPolicy is the status returned when the remote platform or
// the secret store could not be reached (network error or timeout).
const StatusBadGatewayPolicy = http.StatusBadGateway

// DefaultStatus returns the response status for a kind. KindRemote has no
// default: the remote platform's own status is forwarded instead.
func (k Kind) DefaultStatus() int {
	switch k {
	case KindSuccess:
		return http.StatusOK
	case KindConfig:
		return http.StatusBadRequest
	case KindCredentialNotFound:
		return http.StatusNotFound
	case KindNetwork, KindTimeout:
		return StatusBadGatewayPolicy
	default:
		return http.StatusInternalServerError
	}
}

// Description is the caller-facing message for kinds whose detail stays in the logs.
func (k Kind) Description() string {
	switch k {
	case KindCredentialNotFound:
		return "credential secret not found"
	case KindCredentialUnreachable:
		return "secret store unreachable"
	case KindCredentialMalformed:
		return "credential secret is malformed"
	case KindCredentialFieldMissing:
		return "credential token field missing"
	case KindNetwork:
		return "job platform unreachable"
	case KindTimeout:
		return "request timed out"
	case KindMalformedResponse:
		return "job platform returned a malformed response"
	default:
		return "internal error"
	}
}

// CredentialMode selects how a credential reference is turned into a token.
type CredentialMode string

// CredentialMode values enumerate the supported credential sources.
const (
	CredentialDirect         CredentialMode = "direct"
	CredentialSecretsManager CredentialMode = "secretsmanager"
	CredentialVault          CredentialMode = "vault"
)

// ParseCredentialMode parses a mode name. The empty string means direct.
func ParseCredentialMode(s string) (CredentialMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return CredentialDirect, nil
	case "secretsmanager", "secrets-manager":
		return CredentialSecretsManager, nil
	case "vault":
		return CredentialVault, nil
	default:
		return "", fmt.Errorf("unknown credential mode %q", s)
	}
}

// Indirect reports whether the mode resolves the reference against a secret store.
func (m CredentialMode) Indirect() bool {
	return m == CredentialSecretsManager || m == CredentialVault
}
