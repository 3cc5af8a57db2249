package secrets

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// ProviderKey is the secret name holding a provider's API key, e.g. "claude_api_key"
func ProviderKey(provider string) string {
	return strings.ToLower(provider) + "_api_key"
}

// envKey maps "custom-openai.key" style names to CUSTOM_OPENAI_KEY
func envKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

// EnvManager reads secrets from the process environment only
type EnvManager struct{}

func (EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	if value := os.Getenv(envKey(key)); value != "" {
		return value, nil
	}
	return "", ErrSecretNotFound
}

func (m EnvManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	if value, err := m.GetSecret(ctx, key); err == nil {
		return value
	}
	return defaultValue
}
