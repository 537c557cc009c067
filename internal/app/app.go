package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/florianilch/pandal-client/internal/auth"
	"github.com/florianilch/pandal-client/internal/httpclient"
	"github.com/florianilch/pandal-client/internal/pandals"
	"github.com/florianilch/pandal-client/internal/session"
	"github.com/florianilch/pandal-client/internal/tokensource"
	"github.com/florianilch/pandal-client/internal/tokenstore"
)

// App wires the credential store, session, HTTP client, and API services.
type App struct {
	cfg     *Config
	session *session.Session
	client  *httpclient.Client
	auth    *auth.Service
	pandals *pandals.Client
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	store     tokenstore.TokenStore
	transport http.RoundTripper
}

// WithLogger sets the logger used by the session and request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTokenStore overrides the token store selected by the storage configuration.
func WithTokenStore(store tokenstore.TokenStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithTransport sets the base transport for API and refresh requests.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *options) {
		o.transport = transport
	}
}

// New creates a new App instance. No I/O happens until the first API call.
func New(cfg *Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := options{logger: slog.Default(), transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = cfg.Storage.NewTokenStore()
		if err != nil {
			return nil, fmt.Errorf("failed to create token store: %w", err)
		}
	}

	refresher := tokensource.NewRefresher(
		tokensource.Endpoint(cfg.API.BaseURL),
		tokensource.WithTimeout(cfg.Refresh.Timeout),
		tokensource.WithTransport(o.transport),
	)

	sess, err := session.New(store, refresher,
		session.WithRefreshMode(cfg.Refresh.Mode),
		session.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Logging is innermost so a replayed request is logged as its own attempt
	client, err := httpclient.New(cfg.API.BaseURL,
		httpclient.WithTimeout(cfg.API.Timeout),
		httpclient.WithTransport(o.transport),
		httpclient.WithMiddlewares(
			httpclient.RequestID(),
			httpclient.Refresh(sess),
			httpclient.Bearer(sess),
			httpclient.Logging(o.logger),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	authService, err := auth.NewService(client, sess)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	return &App{
		cfg:     cfg,
		session: sess,
		client:  client,
		auth:    authService,
		pandals: pandals.New(client),
	}, nil
}

// Config returns the validated configuration.
func (a *App) Config() *Config {
	return a.cfg
}

// Auth returns the authentication facade.
func (a *App) Auth() *auth.Service {
	return a.auth
}

// Pandals returns the pandal resource client.
func (a *App) Pandals() *pandals.Client {
	return a.pandals
}

// Client returns the authenticated API client.
func (a *App) Client() *httpclient.Client {
	return a.client
}
