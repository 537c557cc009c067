package tokensource

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{"http://localhost:8080/api/v1", "http://localhost:8080/api/v1/auth/refresh"},
		{"http://localhost:8080/api/v1/", "http://localhost:8080/api/v1/auth/refresh"},
	}
	for _, tt := range tests {
		if got := Endpoint(tt.baseURL).TokenURL; got != tt.want {
			t.Errorf("Endpoint(%q).TokenURL = %q, want %q", tt.baseURL, got, tt.want)
		}
	}
}

func TestRefresherSendsJSON(t *testing.T) {
	var gotBody map[string]any
	var gotContentType, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != RefreshPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %q", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":900}`))
	}))
	defer srv.Close()

	r := NewRefresher(Endpoint(srv.URL))
	token, err := r.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotAuth != "" {
		t.Errorf("refresh request must be unauthenticated, got Authorization %q", gotAuth)
	}
	if len(gotBody) != 1 || gotBody["refresh_token"] != "old-refresh" {
		t.Errorf("body = %v, want only refresh_token", gotBody)
	}
	if token.AccessToken != "new-access" || token.RefreshToken != "new-refresh" {
		t.Errorf("token = %+v", token)
	}
	if token.Expiry.IsZero() {
		t.Error("expected expiry derived from expires_in")
	}
}

func TestRefresherKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access"}`))
	}))
	defer srv.Close()

	token, err := NewRefresher(Endpoint(srv.URL)).Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if token.RefreshToken != "old-refresh" {
		t.Errorf("RefreshToken = %q, want old-refresh", token.RefreshToken)
	}
}

func TestRefresherErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid refresh token"}`},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"missing access token", http.StatusOK, `{"refresh_token":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRefresher(Endpoint(srv.URL)).Refresh(context.Background(), "refresh")
			if err == nil {
				t.Fatal("expected error")
			}

			var retrieveErr *oauth2.RetrieveError
			if tt.status >= 400 {
				if !errors.As(err, &retrieveErr) || retrieveErr.Response.StatusCode != tt.status {
					t.Errorf("expected RetrieveError with status %d, got %v", tt.status, err)
				}
			}
		})
	}
}

func TestRefresherRejectsEmptyToken(t *testing.T) {
	if _, err := NewRefresher(Endpoint("http://127.0.0.1:1")).Refresh(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty refresh token")
	}
}
