package security

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAccessToken(t *testing.T) {
	t.Parallel()

	a, errA := GenerateAccessToken()
	b, errB := GenerateAccessToken()
	if errA != nil || errB != nil {
		t.Fatalf("generate: %v %v", errA, errB)
	}
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
	if !LooksLikeAccessToken(a) {
		t.Fatalf("token %q has unexpected shape", a)
	}
	if LooksLikeAccessToken("not-a-token") {
		t.Fatalf("short token accepted")
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := GenerateAdminToken("secret-123", 7, "ops@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseAdminToken("secret-123", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AdminID != 7 || claims.Email != "ops@example.com" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := ParseAdminToken("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestAdminTokenExpired(t *testing.T) {
	t.Parallel()

	token, err := GenerateAdminToken("secret-123", 1, "ops@example.com", "admin", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseAdminToken("secret-123", token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Fatalf("expected mismatch")
	}
}
