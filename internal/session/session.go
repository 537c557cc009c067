// Package session persists the access/refresh token pair and coordinates refreshes.
//
// A session is active while an access token is stored. Tokens are written and
// deleted in lockstep; a failed refresh invalidates the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/florianilch/pandal-client/internal/tokenstore"
)

// ErrNoRefreshToken is returned by Refresh when no refresh token is stored.
var ErrNoRefreshToken = errors.New("no refresh token")

// RefreshMode controls how concurrent refreshes interact.
type RefreshMode string

const (
	// RefreshCoalesced shares one in-flight refresh between concurrent callers.
	RefreshCoalesced RefreshMode = "coalesced"
	// RefreshIndependent lets every caller refresh on its own with whatever
	// refresh token is stored at that moment, even if another caller already
	// rotated the pair. Concurrent refreshes race to overwrite the stored pair.
	RefreshIndependent RefreshMode = "independent"
)

// TokenRefresher exchanges a refresh token for a new token pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Option configures a Session.
type Option func(*Session)

// WithRefreshMode sets the refresh mode. Defaults to RefreshCoalesced.
func WithRefreshMode(mode RefreshMode) Option {
	return func(s *Session) {
		s.mode = mode
	}
}

// WithLogger sets the logger used for refresh and cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session reads and writes the token pair in a TokenStore and refreshes it on demand.
// Safe for concurrent use.
type Session struct {
	store     tokenstore.TokenStore
	refresher TokenRefresher
	mode      RefreshMode
	logger    *slog.Logger

	inflight singleflight.Group
}

// New creates a Session. No I/O is performed.
func New(store tokenstore.TokenStore, refresher TokenRefresher, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if refresher == nil {
		return nil, fmt.Errorf("missing token refresher")
	}

	s := &Session{
		store:     store,
		refresher: refresher,
		mode:      RefreshCoalesced,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch s.mode {
	case RefreshCoalesced, RefreshIndependent:
	default:
		return nil, fmt.Errorf("unsupported refresh mode: %s", s.mode)
	}

	return s, nil
}

// AccessToken returns the stored access token, or "" if there is none.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, tokenstore.AccessTokenKey)
}

// RefreshToken returns the stored refresh token, or "" if there is none.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, tokenstore.RefreshTokenKey)
}

func (s *Session) get(ctx context.Context, key string) (string, error) {
	token, err := s.store.Get(ctx, key)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return token, nil
}

// Active reports whether an access token is stored. Expiry is not checked.
func (s *Session) Active(ctx context.Context) (bool, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// Save stores both tokens of the pair. If the second write fails, both keys are
// removed so the store never holds half a pair.
func (s *Session) Save(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" || token.RefreshToken == "" {
		return fmt.Errorf("incomplete token pair")
	}

	if err := s.store.Set(ctx, tokenstore.AccessTokenKey, token.AccessToken); err != nil {
		return fmt.Errorf("writing %s: %w", tokenstore.AccessTokenKey, err)
	}
	if err := s.store.Set(ctx, tokenstore.RefreshTokenKey, token.RefreshToken); err != nil {
		if clearErr := s.Clear(context.WithoutCancel(ctx)); clearErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back partial token write", "error", clearErr)
		}
		return fmt.Errorf("writing %s: %w", tokenstore.RefreshTokenKey, err)
	}
	return nil
}

// Clear deletes both tokens. Both deletes are attempted even if the first fails.
func (s *Session) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{tokenstore.AccessTokenKey, tokenstore.RefreshTokenKey} {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("deleting %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Refresh obtains a new access token after staleAccessToken was rejected.
//
// In coalesced mode callers rejected with the same access token share one
// refresh, and if the stored access token no longer matches staleAccessToken
// another caller already refreshed and the stored token is returned without a
// network call. Otherwise the stored refresh token is exchanged and the new pair
// persisted. Any failure clears the session.
func (s *Session) Refresh(ctx context.Context, staleAccessToken string) (string, error) {
	if s.mode == RefreshIndependent {
		return s.refresh(ctx, staleAccessToken)
	}

	// The shared attempt must outlive any single caller's cancellation
	ch := s.inflight.DoChan(staleAccessToken, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), staleAccessToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) refresh(ctx context.Context, staleAccessToken string) (string, error) {
	if s.mode == RefreshCoalesced {
		current, err := s.AccessToken(ctx)
		if err != nil {
			return "", s.invalidate(ctx, err)
		}
		if current != "" && current != staleAccessToken {
			s.logger.DebugContext(ctx, "access token already refreshed")
			return current, nil
		}
	}

	refreshToken, err := s.RefreshToken(ctx)
	if err != nil {
		return "", s.invalidate(ctx, err)
	}
	if refreshToken == "" {
		return "", s.invalidate(ctx, ErrNoRefreshToken)
	}

	fresh, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", s.invalidate(ctx, err)
	}

	// Keep the current refresh token if the endpoint did not rotate it
	pair := &oauth2.Token{AccessToken: fresh.AccessToken, RefreshToken: fresh.RefreshToken}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	if err := s.Save(ctx, pair); err != nil {
		return "", s.invalidate(ctx, err)
	}

	s.logger.InfoContext(ctx, "access token refreshed")
	return pair.AccessToken, nil
}

// invalidate clears the session after a failed refresh and returns cause.
// The clear runs even when ctx is already cancelled or past its deadline.
func (s *Session) invalidate(ctx context.Context, cause error) error {
	s.logger.WarnContext(ctx, "token refresh failed, clearing session", "error", cause)
	if err := s.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear session", "error", err)
	}
	return fmt.Errorf("refreshing session: %w", cause)
}
