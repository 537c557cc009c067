package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds one call, including a refresh and replay.
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 10 << 20

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout     time.Duration
	transport   http.RoundTripper
	middlewares []Middleware
	header      http.Header
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithTransport sets the base transport. If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *clientConfig) {
		c.transport = transport
	}
}

// WithMiddlewares appends middlewares to the pipeline. The first one is the outermost.
func WithMiddlewares(middlewares ...Middleware) Option {
	return func(c *clientConfig) {
		c.middlewares = append(c.middlewares, middlewares...)
	}
}

// WithHeader sets a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *clientConfig) {
		c.header.Set(key, value)
	}
}

// Client sends JSON requests to the API. Safe for concurrent use.
type Client struct {
	baseURL    string
	header     http.Header
	httpClient *http.Client
}

// New creates a Client for baseURL with the middleware pipeline composed once.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	cfg := &clientConfig{
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
		header:    http.Header{},
	}
	cfg.header.Set("Content-Type", "application/json")
	cfg.header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  cfg.header,
		httpClient: &http.Client{
			Timeout:   cfg.timeout,
			Transport: applyMiddlewares(cfg.transport, cfg.middlewares...),
		},
	}, nil
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a request to path (relative to the base URL, may include a query).
// in is JSON-encoded as the body unless nil. A 2xx body is decoded into out
// unless out is nil; a *json.RawMessage receives the body verbatim.
// Non-2xx responses are returned as *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(method, path, resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	// Per-call options are copied so the single-shot guard never spans calls
	if opts, ok := CallOptionsFrom(ctx); ok {
		ctx = WithCallOptions(ctx, opts.clone())
	} else {
		ctx = WithCallOptions(ctx, &CallOptions{})
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		// bytes.Reader makes the body replayable (GetBody is set)
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for key, values := range c.header {
		req.Header[key] = append([]string(nil), values...)
	}
	if in == nil {
		req.Header.Del("Content-Type")
	}
	return req, nil
}

// StatusError is returned for responses with a non-2xx status code.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the API's "error" field, if the body carried one.
	Message string
	Body    []byte
}

// errorResponse is the API's JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func newStatusError(method, path string, status int, body []byte) *StatusError {
	e := &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       body,
	}
	var envelope errorResponse
	if json.Unmarshal(body, &envelope) == nil {
		e.Message = envelope.Error
	}
	return e
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsUnauthorized reports whether err is a 401 StatusError.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}
