// Package credential resolves the bearer token used to call the job platform.
//
// A Provider is chosen once, at configuration time, from the credential mode.
// Direct returns the reference itself; SecretsManager and Vault treat the
// reference as a secret identifier and read one field of the stored document.
// Providers never retry: each Fetch performs at most one store lookup.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// DefaultTimeout bounds a single secret store lookup.
const DefaultTimeout = 30 * time.Second

// Provider turns a credential reference into a bearer token.
type Provider interface {
	// Name returns the provider identifier.
	Name() string
	// Fetch resolves ref. Errors are *Error values.
	Fetch(ctx context.Context, ref string) (types.Credential, error)
}

// Error is returned by every Provider. Kind is one of the credential kinds
// of the outcome taxonomy. SecretID is empty for the direct provider so the
// token itself is never echoed.
type Error struct {
	Kind     types.Kind
	SecretID string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.SecretID != "" {
		fmt.Fprintf(&b, ": secret %q", e.SecretID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the lookup was cut off by its deadline.
func (e *Error) Timeout() bool { return errors.Is(e.Err, context.DeadlineExceeded) }

// Option configures the indirect providers.
type Option func(*settings)

type settings struct {
	field   string
	timeout time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{field: "token", timeout: DefaultTimeout}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// WithTokenField sets the default field read from the secret document.
// A "#field" suffix on the reference overrides it.
func WithTokenField(field string) Option {
	return func(s *settings) {
		if field != "" {
			s.field = field
		}
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// splitRef splits "secret-id#field" into its parts, falling back to the
// default field when no suffix is present.
func splitRef(ref, defaultField string) (id, field string) {
	ref = strings.TrimSpace(ref)
	if idx := strings.LastIndex(ref, "#"); idx >= 0 {
		id, field = ref[:idx], ref[idx+1:]
		if field == "" {
			field = defaultField
		}
		return id, field
	}
	return ref, defaultField
}

// tokenFromDocument reads field from a decoded secret document.
func tokenFromDocument(doc map[string]interface{}, secretID, field string) (types.Credential, error) {
	val, ok := doc[field]
	if !ok || val == nil {
		return "", &Error{Kind: types.KindCredentialFieldMissing, SecretID: secretID, Err: fmt.Errorf("field %q not present", field)}
	}
	s, ok := val.(string)
	if !ok {
		return "", &Error{Kind: types.KindCredentialMalformed, SecretID: secretID, Err: fmt.Errorf("field %q is %T, want string", field, val)}
	}
	if strings.TrimSpace(s) == "" {
		return "", &Error{Kind: types.KindCredentialFieldMissing, SecretID: secretID, Err: fmt.Errorf("field %q is empty", field)}
	}
	return types.Credential(s), nil
}

// lookupError classifies a failed store call. Deadline errors keep
// context.DeadlineExceeded in their chain so callers can report a timeout.
func lookupError(ctx context.Context, secretID string, err error) *Error {
	if ctx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return &Error{Kind: types.KindCredentialUnreachable, SecretID: secretID, Err: err}
}
