package tokenstore

import (
	"context"
	"errors"
)

// Keys under which the session token pair is stored.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

var (
	// ErrNotFound is returned by Get when no value is stored under the key.
	ErrNotFound = errors.New("token not found")

	// ErrReadOnly is returned by backends that cannot be written to.
	ErrReadOnly = errors.New("token storage is read-only")
)

// TokenStore reads, writes and deletes tokens in persistent storage.
//
// Backend failures are returned to the caller as-is; stores never retry.
type TokenStore interface {
	// Get returns the value stored under key. Returns ErrNotFound if the key
	// is missing or holds an empty value.
	Get(ctx context.Context, key string) (string, error)

	// Set persists value under key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
