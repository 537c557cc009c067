// Package tokensource exchanges refresh tokens for new token pairs.
//
// The API's refresh endpoint deviates from standard OAuth2:
//   - It takes a JSON body {"refresh_token": "..."} instead of a form-encoded grant
//   - It has no client credentials and no scopes
//
// The Refresher reuses golang.org/x/oauth2 for response parsing and error
// reporting and rewrites the outgoing request in a dedicated transport.
//
// # Usage
//
//	r := tokensource.NewRefresher(tokensource.Endpoint(baseURL))
//	token, err := r.Refresh(ctx, refreshToken)
//
// # Custom Base Transport
//
// Configure a custom base transport for refresh requests (e.g., for proxies or tests):
//
//	r := tokensource.NewRefresher(
//		tokensource.Endpoint(baseURL),
//		tokensource.WithTransport(customTransport),
//	)
//
// Refresh requests never pass through the authenticated client pipeline.
package tokensource
