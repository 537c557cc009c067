// Package httpclient provides the shared JSON client for the pandal API.
//
// A Client sends requests relative to a base URL with a fixed timeout and a
// default JSON content type. Cross-cutting behavior is expressed as a pipeline
// of http.RoundTripper middlewares composed once in New:
//
//	client, err := httpclient.New(baseURL,
//		httpclient.WithMiddlewares(
//			httpclient.RequestID(),
//			httpclient.Refresh(session), // inbound: refresh on 401, replay once
//			httpclient.Bearer(session),  // outbound: Authorization: Bearer <token>
//			httpclient.Logging(logger),  // one record per attempt
//		),
//	)
//
// The first middleware is the outermost. Refresh must wrap Bearer so that the
// replayed request picks up the refreshed token.
//
// # Per-call options
//
// Each call carries its own CallOptions in the request context. The Retried
// field is the single-shot guard: a request that was already replayed after a
// refresh is never refreshed again.
package httpclient
