package httpclient

import "context"

// CallOptions holds per-call state shared by the middlewares of one request.
// The Client copies options found in the context, so a value never leaks
// between calls.
type CallOptions struct {
	// SkipAuth sends the request without an Authorization header.
	SkipAuth bool

	// SkipRefresh returns 401 responses without attempting a refresh.
	SkipRefresh bool

	// Retried is set once the request was replayed after a refresh.
	Retried bool

	// sentToken is the access token Bearer attached to the last attempt.
	sentToken string
}

type callOptionsKey struct{}

// WithCallOptions returns a context carrying opts.
func WithCallOptions(ctx context.Context, opts *CallOptions) context.Context {
	return context.WithValue(ctx, callOptionsKey{}, opts)
}

// CallOptionsFrom returns the options attached to ctx, if any.
func CallOptionsFrom(ctx context.Context) (*CallOptions, bool) {
	opts, ok := ctx.Value(callOptionsKey{}).(*CallOptions)
	return opts, ok && opts != nil
}

// SentToken returns the access token attached to the last attempt, or "".
func (o *CallOptions) SentToken() string {
	return o.sentToken
}

func (o *CallOptions) clone() *CallOptions {
	c := *o
	return &c
}

// ensureCallOptions returns the options in ctx, attaching fresh ones if missing.
func ensureCallOptions(ctx context.Context) (context.Context, *CallOptions) {
	if opts, ok := CallOptionsFrom(ctx); ok {
		return ctx, opts
	}
	opts := &CallOptions{}
	return WithCallOptions(ctx, opts), opts
}
