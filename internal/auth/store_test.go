package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "state", "token"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestMissingFileMeansLoggedOut(t *testing.T) {
	store := newStore(t)
	if got := store.Token(); got != "" {
		t.Fatalf("token = %q, want empty", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save("tok-abc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := store.Token(); got != "tok-abc" {
		t.Fatalf("token = %q", got)
	}

	// A fresh store over the same file sees the persisted token.
	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Token(); got != "tok-abc" {
		t.Fatalf("reopened token = %q", got)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	store := newStore(t)
	if err := store.Save("tok"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if store.Token() != "" {
		t.Fatal("token not cleared")
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear should be a no-op, got %v", err)
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ana",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestExpired(t *testing.T) {
	now := time.Now()
	store := newStore(t)

	if err := store.Save(signedToken(t, now.Add(time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.Expired(now) {
		t.Fatal("future expiry reported as expired")
	}

	if err := store.Save(signedToken(t, now.Add(-time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !store.Expired(now) {
		t.Fatal("past expiry not reported as expired")
	}
}

func TestExpiredToleratesOpaqueTokens(t *testing.T) {
	store := newStore(t)
	if err := store.Save("not-a-jwt"); err != nil {
		t.Fatalf("save: %v", err)
	}
	// The server is the authority; an unreadable token is kept until it
	// bounces with a 401.
	if store.Expired(time.Now()) {
		t.Fatal("opaque token should not be treated as expired")
	}
}

func TestExpiredWhenLoggedOut(t *testing.T) {
	store := newStore(t)
	if store.Expired(time.Now()) {
		t.Fatal("empty token should not be reported expired")
	}
}
