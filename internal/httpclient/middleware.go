package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v3"
	"github.com/google/uuid"
)

// Middleware decorates a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper interface.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// applyMiddlewares applies middlewares to a transport in the order they appear.
// The first middleware in the slice is the outermost (executes first).
func applyMiddlewares(rt http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	for i := len(middlewares) - 1; i >= 0; i-- {
		rt = middlewares[i](rt)
	}
	return rt
}

// TokenSource provides the current access token. An empty token with a nil
// error means there is none.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Bearer attaches the stored access token to every request as
// "Authorization: Bearer <token>". Requests proceed without the header when no
// token is stored. Storage failures fail the request.
func Bearer(ts TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			opts, _ := CallOptionsFrom(req.Context())
			if opts != nil && opts.SkipAuth {
				return next.RoundTrip(req)
			}

			token, err := ts.AccessToken(req.Context())
			if err != nil {
				closeBody(req)
				return nil, fmt.Errorf("reading access token: %w", err)
			}
			if opts != nil {
				opts.sentToken = token
			}
			if token == "" {
				return next.RoundTrip(req)
			}

			// RoundTrippers must not modify the caller's request
			out := req.Clone(req.Context())
			out.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(out)
		})
	}
}

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-Id"

// RequestID sets a random X-Request-Id header on requests that lack one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(req)
			}
			out := req.Clone(req.Context())
			out.Header.Set(RequestIDHeader, uuid.NewString())
			return next.RoundTrip(out)
		})
	}
}

// logSchema names request attributes the same way server-side access logs do.
var logSchema = httplog.SchemaECS.Concise(true)

// Logging logs requests with method, path, status, and duration.
// Headers and bodies are never logged.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			attrs := []any{
				slog.String(logSchema.RequestMethod, req.Method),
				slog.String(logSchema.RequestPath, req.URL.Path),
				slog.String("request_id", req.Header.Get(RequestIDHeader)),
				slog.Duration(logSchema.ResponseDuration, time.Since(start)),
			}
			if err != nil {
				logger.WarnContext(req.Context(), "request failed", append(attrs, slog.Any(logSchema.ErrorMessage, err))...)
				return nil, err
			}

			logger.DebugContext(req.Context(), "request completed", append(attrs, slog.Int(logSchema.ResponseStatus, resp.StatusCode))...)
			return resp, nil
		})
	}
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
