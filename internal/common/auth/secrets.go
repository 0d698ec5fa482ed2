package auth

import (
	"context"
	"fmt"
)

// SecretsProvider resolves a secret value by id.
type SecretsProvider interface {
	Get(ctx context.Context, id string) (string, error)
}

// ResolveSigningKey returns the token signing key: the managed secret when
// a secret id is configured, otherwise the key from local config.
func ResolveSigningKey(ctx context.Context, provider SecretsProvider, secretID, configured string) (string, error) {
	if secretID == "" {
		if configured == "" {
			return "", fmt.Errorf("no token signing key configured")
		}
		return configured, nil
	}

	key, err := provider.Get(ctx, secretID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve signing key: %w", err)
	}
	return key, nil
}
