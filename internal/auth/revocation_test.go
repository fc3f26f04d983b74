package auth

import (
	"testing"
	"time"
)

func TestRevokeUntilExpiry(t *testing.T) {
	r := NewRevocations()

	r.Revoke("jti-1", time.Now().Add(time.Hour))
	if !r.IsRevoked("jti-1") {
		t.Fatal("jti-1 not reported revoked")
	}
	if r.IsRevoked("jti-2") {
		t.Fatal("unknown jti reported revoked")
	}
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	r := NewRevocations()

	r.Revoke("stale", time.Now().Add(-time.Minute))
	if r.IsRevoked("stale") {
		t.Fatal("already-expired token reported revoked")
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestRevocationEntryLapsesAtExpiry(t *testing.T) {
	r := NewRevocations()

	r.Revoke("short", time.Now().Add(30*time.Millisecond))
	if !r.IsRevoked("short") {
		t.Fatal("entry missing right after revoke")
	}

	time.Sleep(50 * time.Millisecond)
	if r.IsRevoked("short") {
		t.Fatal("entry reported past the token's own expiry")
	}
}

func TestRevokeEmptyJTI(t *testing.T) {
	r := NewRevocations()
	r.Revoke("", time.Now().Add(time.Hour))
	if r.IsRevoked("") {
		t.Fatal("empty jti reported revoked")
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestRevokeIdempotent(t *testing.T) {
	r := NewRevocations()
	exp := time.Now().Add(time.Hour)
	r.Revoke("jti", exp)
	r.Revoke("jti", exp)
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	if !r.IsRevoked("jti") {
		t.Fatal("jti not reported revoked after double revoke")
	}
}
