package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

// storeFactories returns a fresh writable store per backend.
func storeFactories(t *testing.T) map[string]func() TokenStore {
	t.Helper()
	return map[string]func() TokenStore{
		"memory": func() TokenStore { return NewMemoryStore() },
		"file": func() TokenStore {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "tokens.json"))
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}
			return s
		},
		"keyring": func() TokenStore {
			keyring.MockInit()
			s, err := NewKeyringStore("pandal-client-test")
			if err != nil {
				t.Fatalf("NewKeyringStore: %v", err)
			}
			return s
		},
	}
}

func TestWritableStores(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			if _, err := s.Get(ctx, AccessTokenKey); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get on empty store: got %v, want ErrNotFound", err)
			}

			if err := s.Set(ctx, AccessTokenKey, "access-1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, RefreshTokenKey, "refresh-1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, AccessTokenKey, "access-2"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}

			got, err := s.Get(ctx, AccessTokenKey)
			if err != nil || got != "access-2" {
				t.Fatalf("Get access: got %q, %v; want access-2", got, err)
			}
			got, err = s.Get(ctx, RefreshTokenKey)
			if err != nil || got != "refresh-1" {
				t.Fatalf("Get refresh: got %q, %v; want refresh-1", got, err)
			}

			if err := s.Delete(ctx, AccessTokenKey); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, AccessTokenKey); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after delete: got %v, want ErrNotFound", err)
			}
			if got, _ := s.Get(ctx, RefreshTokenKey); got != "refresh-1" {
				t.Fatalf("Delete removed unrelated key, refresh = %q", got)
			}

			// Deleting again is a no-op
			if err := s.Delete(ctx, AccessTokenKey); err != nil {
				t.Fatalf("Delete missing key: %v", err)
			}
		})
	}
}

func TestStoresHonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()
			if _, err := s.Get(ctx, AccessTokenKey); !errors.Is(err, context.Canceled) {
				t.Errorf("Get: got %v, want context.Canceled", err)
			}
			if err := s.Set(ctx, AccessTokenKey, "x"); !errors.Is(err, context.Canceled) {
				t.Errorf("Set: got %v, want context.Canceled", err)
			}
			if err := s.Delete(ctx, AccessTokenKey); !errors.Is(err, context.Canceled) {
				t.Errorf("Delete: got %v, want context.Canceled", err)
			}
		})
	}
}

func TestFileStorePermissions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Set(ctx, AccessTokenKey, "secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("file permissions = %04o, want 0600", perm)
	}

	// No temp files left behind after atomic rename
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the token file, found %d entries", len(entries))
	}

	if err := os.Chmod(path, 0644); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if _, err := s.Get(ctx, AccessTokenKey); err == nil {
		t.Fatal("expected error for insecure permissions")
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	first, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := first.Set(ctx, RefreshTokenKey, "refresh"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	got, err := second.Get(ctx, RefreshTokenKey)
	if err != nil || got != "refresh" {
		t.Fatalf("Get from second instance: got %q, %v", got, err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := s.Get(context.Background(), AccessTokenKey); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewEnvStore("PANDAL_")
	if err != nil {
		t.Fatalf("NewEnvStore: %v", err)
	}
	env := map[string]string{
		"PANDAL_ACCESS_TOKEN":  " static-token \n",
		"PANDAL_REFRESH_TOKEN": "",
	}
	s.lookupFn = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	got, err := s.Get(ctx, AccessTokenKey)
	if err != nil || got != "static-token" {
		t.Fatalf("Get access: got %q, %v", got, err)
	}
	if _, err := s.Get(ctx, RefreshTokenKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get empty refresh: got %v, want ErrNotFound", err)
	}
	if err := s.Set(ctx, AccessTokenKey, "x"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Set: got %v, want ErrReadOnly", err)
	}
	if err := s.Delete(ctx, AccessTokenKey); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Delete: got %v, want ErrReadOnly", err)
	}
}

func TestConstructorValidation(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("NewFileStore: expected error for empty path")
	}
	if _, err := NewEnvStore(""); err == nil {
		t.Error("NewEnvStore: expected error for empty prefix")
	}
	if _, err := NewKeyringStore(""); err == nil {
		t.Error("NewKeyringStore: expected error for empty service")
	}
}
