package credential

import (
	"context"
	"errors"
	"strings"

	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// Direct treats the reference as the token. It makes no external calls.
type Direct struct{}

// NewDirect returns the pass-through provider.
func NewDirect() Direct { return Direct{} }

// Name returns the provider identifier.
func (Direct) Name() string { return string(types.CredentialDirect) }

// Fetch returns ref unchanged.
func (Direct) Fetch(_ context.Context, ref string) (types.Credential, error) {
	if strings.TrimSpace(ref) == "" {
		return "", &Error{Kind: types.KindCredentialFieldMissing, Err: errors.New("token is empty")}
	}
	return types.Credential(ref), nil
}
