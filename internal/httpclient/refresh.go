package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/florianilch/pandal-client/internal/httpclient"

// Refresher obtains a new access token after staleAccessToken was rejected.
// Implementations clear the stored session when they fail.
type Refresher interface {
	Refresh(ctx context.Context, staleAccessToken string) (string, error)
}

// Refresh handles 401 responses by refreshing the session once and replaying
// the request with the new access token.
//
// Other statuses pass through unchanged. A request is refreshed at most once:
// the replay is marked Retried and its 401 is returned as-is. If the refresh
// fails, the original 401 response is returned so callers see the original error.
func Refresh(r Refresher) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return &refreshTransport{
			next:      next,
			refresher: r,
			tracer:    otel.Tracer(tracerName),
		}
	}
}

type refreshTransport struct {
	next      http.RoundTripper
	refresher Refresher
	tracer    trace.Tracer
}

// Compile-time check that refreshTransport implements http.RoundTripper.
var _ http.RoundTripper = (*refreshTransport)(nil)

// RoundTrip implements http.RoundTripper interface.
func (t *refreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, opts := ensureCallOptions(req.Context())
	if ctx != req.Context() {
		req = req.WithContext(ctx)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if opts.Retried || opts.SkipRefresh {
		return resp, nil
	}
	if !replayable(req) {
		slog.DebugContext(ctx, "skipping token refresh for non-replayable request", "path", req.URL.Path)
		return resp, nil
	}
	opts.Retried = true

	// Keep the original 401 intact: it is the result if the refresh fails
	original, err := bufferResponse(resp)
	if err != nil {
		return nil, err
	}

	token, err := t.refresh(ctx, opts.sentToken)
	if err != nil {
		return original, nil
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return original, nil
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+token)

	return t.next.RoundTrip(retry)
}

func (t *refreshTransport) refresh(ctx context.Context, staleAccessToken string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "auth.refresh", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	token, err := t.refresher.Refresh(ctx, staleAccessToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token refresh failed")
		return "", err
	}
	return token, nil
}

// replayable reports whether the request body can be sent again.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// bufferResponse reads the response body into memory so it survives the refresh.
func bufferResponse(resp *http.Response) (*http.Response, error) {
	orig := resp.Body
	defer func() { _ = orig.Close() }()
	body, err := io.ReadAll(io.LimitReader(orig, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading 401 response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}
