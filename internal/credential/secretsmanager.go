package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used by SecretsManager.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManager reads the token from a JSON secret in AWS Secrets Manager.
type SecretsManager struct {
	client SecretsManagerAPI
	settings
}

// NewSecretsManager creates a provider backed by a Secrets Manager client for
// region. The SDK retryer is disabled so each Fetch makes exactly one call.
func NewSecretsManager(ctx context.Context, region string, opts ...Option) (*SecretsManager, error) {
	if region == "" {
		return nil, fmt.Errorf("secrets manager: region is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewSecretsManagerWithClient(secretsmanager.NewFromConfig(cfg), opts...), nil
}

// NewSecretsManagerWithClient creates a provider around an existing client (useful for testing).
func NewSecretsManagerWithClient(client SecretsManagerAPI, opts ...Option) *SecretsManager {
	return &SecretsManager{client: client, settings: newSettings(opts)}
}

// Name returns the provider identifier.
func (p *SecretsManager) Name() string { return string(types.CredentialSecretsManager) }

// Fetch reads "secret-id" or "secret-id#field" and returns the field value.
func (p *SecretsManager) Fetch(ctx context.Context, ref string) (types.Credential, error) {
	secretID, field := splitRef(ref, p.field)
	if secretID == "" {
		return "", &Error{Kind: types.KindCredentialNotFound, Err: fmt.Errorf("empty secret id")}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", &Error{Kind: types.KindCredentialNotFound, SecretID: secretID, Err: err}
		}
		return "", lookupError(ctx, secretID, err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(*out.SecretString)
	case out.SecretBinary != nil:
		raw = out.SecretBinary
	default:
		return "", &Error{Kind: types.KindCredentialMalformed, SecretID: secretID, Err: fmt.Errorf("secret has no value")}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", &Error{Kind: types.KindCredentialMalformed, SecretID: secretID, Err: fmt.Errorf("parsing secret JSON: %w", err)}
	}
	return tokenFromDocument(doc, secretID, field)
}
