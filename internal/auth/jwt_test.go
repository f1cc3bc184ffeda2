package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWT_RoundTrip(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	token, err := GenerateJWT(secret, userID, "freelancer", "dev@example.com", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("expected user id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != "freelancer" {
		t.Errorf("expected role freelancer, got %s", claims.Role)
	}
	if claims.Email != "dev@example.com" {
		t.Errorf("expected email dev@example.com, got %s", claims.Email)
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret-a", uuid.New(), "client", "c@example.com", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseJWT("secret-b", token); err == nil {
		t.Fatal("expected parse to fail with wrong secret")
	}
}

func TestJWT_Expired(t *testing.T) {
	token, err := GenerateJWT("secret", uuid.New(), "client", "c@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseJWT("secret", token); err == nil {
		t.Fatal("expected parse to fail for expired token")
	}
}

func TestJWT_DefaultExpiration(t *testing.T) {
	token, err := GenerateJWT("secret", uuid.New(), "client", "c@example.com", 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) < 23*time.Hour {
		t.Error("expected ~24h default expiration")
	}
}
