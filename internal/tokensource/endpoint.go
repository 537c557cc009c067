package tokensource

import (
	"strings"

	"golang.org/x/oauth2"
)

// RefreshPath is the refresh endpoint path relative to the API base URL.
const RefreshPath = "/auth/refresh"

// Endpoint returns the OAuth2 endpoint for the API at baseURL.
// Only TokenURL is used; the API has no authorization endpoint.
func Endpoint(baseURL string) oauth2.Endpoint {
	return oauth2.Endpoint{
		TokenURL:  strings.TrimRight(baseURL, "/") + RefreshPath,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}
