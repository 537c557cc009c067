package tokenstore

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvStore provides read-only access to tokens stored in environment variables.
// The variable for a key is the prefix followed by the upper-cased key,
// e.g. PANDAL_ACCESS_TOKEN for prefix "PANDAL_" and key "access_token".
//
// Suitable for scripted use with a pre-issued access token; login and refresh
// need writable storage.
type EnvStore struct {
	prefix   string
	lookupFn func(string) (string, bool)
}

// Compile-time check to ensure EnvStore implements TokenStore
var _ TokenStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore reading variables with the given prefix.
func NewEnvStore(prefix string) (*EnvStore, error) {
	if prefix == "" {
		return nil, fmt.Errorf("environment prefix cannot be empty")
	}

	return &EnvStore{
		prefix:   prefix,
		lookupFn: os.LookupEnv,
	}, nil
}

// Get returns the token from the environment variable for key.
func (e *EnvStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, ok := e.lookupFn(e.variable(key))
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrNotFound
	}
	return strings.TrimSpace(token), nil
}

// Set is not supported for environment variables (they are read-only).
func (e *EnvStore) Set(ctx context.Context, key, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("setting %s: %w", e.variable(key), ErrReadOnly)
}

// Delete is not supported for environment variables (they are read-only).
func (e *EnvStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("deleting %s: %w", e.variable(key), ErrReadOnly)
}

func (e *EnvStore) variable(key string) string {
	return e.prefix + strings.ToUpper(key)
}
