package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/megacoinhq/megacoin/cmd/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.JWTSecret = "test-secret"

	userID := uuid.New()
	token, err := GenerateToken(userID, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parsedID, isAdmin, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsedID != userID {
		t.Fatalf("expected %s, got %s", userID, parsedID)
	}
	if !isAdmin {
		t.Fatal("admin claim lost")
	}

	if _, _, err := ParseToken(token + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}

	config.JWTSecret = "other-secret"
	if _, _, err := ParseToken(token); err == nil {
		t.Fatal("token accepted under wrong secret")
	}
}
