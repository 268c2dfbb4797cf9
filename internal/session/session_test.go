package session

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()
	token, err := s.NewSession("identity-1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	id, ok, err := s.IdentityIDByToken(token)
	if err != nil {
		t.Fatalf("IdentityIDByToken: %v", err)
	}
	if !ok || id != "identity-1" {
		t.Fatalf("resolved = (%q, %v), want (identity-1, true)", id, ok)
	}

	if _, ok, _ := s.IdentityIDByToken("bogus"); ok {
		t.Fatal("bogus token resolved")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testStoreRoundTrip(t, s)

	token, _ := s.NewSession("identity-2")
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, ok, _ := s.IdentityIDByToken(token); ok {
		t.Fatal("deleted token resolved")
	}
}

func TestJWTStore(t *testing.T) {
	s := NewJWTStore("test-secret", time.Hour)
	testStoreRoundTrip(t, s)
}

func TestJWTStoreWrongSecret(t *testing.T) {
	issuer := NewJWTStore("secret-a", time.Hour)
	verifier := NewJWTStore("secret-b", time.Hour)

	token, err := issuer.NewSession("identity-1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok, _ := verifier.IdentityIDByToken(token); ok {
		t.Fatal("token signed with another secret resolved")
	}
}

func TestJWTStoreExpiry(t *testing.T) {
	s := NewJWTStore("test-secret", -time.Minute)
	token, err := s.NewSession("identity-1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok, _ := s.IdentityIDByToken(token); ok {
		t.Fatal("expired token resolved")
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr(), "", time.Hour)
	testStoreRoundTrip(t, s)

	token, err := s.NewSession("identity-2")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, ok, _ := s.IdentityIDByToken(token); ok {
		t.Fatal("deleted token resolved")
	}
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(mr.Addr(), "", time.Minute)

	token, err := s.NewSession("identity-1")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.IdentityIDByToken(token); ok {
		t.Fatal("token resolved after TTL elapsed")
	}
}
