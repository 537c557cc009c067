// Package auth implements the client's authentication verbs: register, login,
// logout and a session presence check.
//
// Contract:
//   - Register: create an account; returns the server's response body verbatim.
//   - Login: exchange credentials for a token pair and persist it.
//   - Logout: forget the stored token pair; calls no endpoint and never fails.
//   - IsAuthenticated: report whether an access token is stored (no expiry check).
//
// Register and Login are sent without refresh-on-401: a 401 there means the
// credentials were rejected, and any session stored from an earlier login is
// left untouched rather than cleared by a failed refresh.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"

	"github.com/florianilch/pandal-client/internal/httpclient"
)

// API paths relative to the client's base URL.
const (
	RegisterPath = "/auth/register"
	LoginPath    = "/auth/login"
)

// Requester sends JSON requests to the API.
type Requester interface {
	Do(ctx context.Context, method, path string, in, out any) error
}

// SessionStore persists and inspects the token pair.
type SessionStore interface {
	Save(ctx context.Context, token *oauth2.Token) error
	Clear(ctx context.Context) error
	Active(ctx context.Context) (bool, error)
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the token pair returned by a successful login.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresIn is the access token lifetime in seconds, as a hint.
	ExpiresIn int64 `json:"expires_in"`
}

// Token converts the response into an oauth2.Token with an absolute expiry.
func (r *LoginResponse) Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    "Bearer",
	}
	if r.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return token
}

// Service implements the authentication verbs on top of the API client and session.
type Service struct {
	client   Requester
	session  SessionStore
	validate *validator.Validate
}

// NewService creates a Service.
func NewService(client Requester, session SessionStore) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("missing API client")
	}
	if session == nil {
		return nil, fmt.Errorf("missing session store")
	}

	return &Service{
		client:   client,
		session:  session,
		validate: validator.New(),
	}, nil
}

// credentialCall marks a request that carries credentials: a 401 there means the
// credentials were rejected, so no refresh is attempted.
func credentialCall(ctx context.Context) context.Context {
	return httpclient.WithCallOptions(ctx, &httpclient.CallOptions{SkipRefresh: true})
}

// Register creates an account. Local state is not changed.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (json.RawMessage, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	var body json.RawMessage
	if err := s.client.Do(credentialCall(ctx), http.MethodPost, RegisterPath, req, &body); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return body, nil
}

// Login authenticates and persists the returned token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := loginRequest{Email: email, Password: password}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	var resp LoginResponse
	if err := s.client.Do(credentialCall(ctx), http.MethodPost, LoginPath, req, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("login: response missing tokens")
	}

	if err := s.session.Save(ctx, resp.Token()); err != nil {
		return nil, fmt.Errorf("login: persisting tokens: %w", err)
	}

	slog.InfoContext(ctx, "logged in", "expires_in", resp.ExpiresIn)
	return &resp, nil
}

// Logout deletes the stored token pair, also when ctx is already cancelled.
// Storage failures are logged, not returned.
func (s *Service) Logout(ctx context.Context) {
	if err := s.session.Clear(context.WithoutCancel(ctx)); err != nil {
		slog.WarnContext(ctx, "failed to clear stored tokens", "error", err)
		return
	}
	slog.InfoContext(ctx, "logged out")
}

// IsAuthenticated reports whether an access token is stored.
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.session.Active(ctx)
}
