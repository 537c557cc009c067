package tokensource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single refresh request.
const DefaultTimeout = 10 * time.Second

// RefresherOption configures a Refresher.
type RefresherOption func(*refresherConfig)

// refresherConfig holds configuration for NewRefresher.
type refresherConfig struct {
	baseTransport http.RoundTripper
	timeout       time.Duration
}

// WithTransport sets a custom base transport for token refresh requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) RefresherOption {
	return func(c *refresherConfig) {
		c.baseTransport = transport
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) RefresherOption {
	return func(c *refresherConfig) {
		c.timeout = timeout
	}
}

// Refresher exchanges a refresh token for a new access/refresh token pair.
// Safe for concurrent use.
type Refresher struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewRefresher creates a Refresher for the given endpoint.
func NewRefresher(endpoint oauth2.Endpoint, opts ...RefresherOption) *Refresher {
	cfg := &refresherConfig{
		baseTransport: http.DefaultTransport,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// HTTP client with JSON transport (wraps provided or default transport for connection pooling).
	// Separate from the authenticated client: refresh calls carry no bearer token.
	httpClient := &http.Client{
		Timeout: cfg.timeout,
		Transport: &tokenRefreshTransport{
			base: cfg.baseTransport,
		},
	}

	return &Refresher{
		config:     &oauth2.Config{Endpoint: endpoint},
		httpClient: httpClient,
	}
}

// Refresh returns the token pair issued for refreshToken. If the endpoint does not
// rotate the refresh token, the returned token carries the one passed in.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token cannot be empty")
	}

	// oauth2 picks up the custom HTTP client via the context (oauth2.HTTPClient key)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	// An empty access token forces the token source to hit the endpoint
	token, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	return token, nil
}

// tokenRefreshTransport converts oauth2's form-encoded token refresh requests
// to the JSON body the refresh endpoint expects.
// The oauth2 package guarantees this transport only receives token endpoint requests.
type tokenRefreshTransport struct {
	base http.RoundTripper
}

// Compile-time check that tokenRefreshTransport implements http.RoundTripper.
var _ http.RoundTripper = (*tokenRefreshTransport)(nil)

// RoundTrip intercepts token refresh requests and converts them from form-encoded to JSON.
func (t *tokenRefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Defer close since we consume the body entirely and create a new body for the cloned request.
	defer func() { _ = req.Body.Close() }()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	formData, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("parsing form data: %w", err)
	}

	// The endpoint is dedicated to refreshing, so the grant type is implied
	jsonData := map[string]string{
		"refresh_token": formData.Get("refresh_token"),
	}

	jsonBody, err := json.Marshal(jsonData)
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON request: %w", err)
	}

	newReq := req.Clone(req.Context())
	newReq.Body = io.NopCloser(bytes.NewReader(jsonBody))
	newReq.ContentLength = int64(len(jsonBody))
	newReq.Header.Set("Content-Type", "application/json")
	newReq.Header.Set("Accept", "application/json")
	newReq.Header.Del("Authorization")

	return t.base.RoundTrip(newReq)
}
