package jwt

import (
	"errors"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(secret, "staff-1", "Aiko", "staff", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.ActorID != "staff-1" || claims.Name != "Aiko" || claims.Role != "staff" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestRejectsBadTokens(t *testing.T) {
	token, err := GenerateToken(secret, "staff-1", "Aiko", "staff", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken([]byte("other-secret"), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: got %v", err)
	}

	expired, err := GenerateToken(secret, "staff-1", "Aiko", "staff", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(secret, expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v", err)
	}

	if _, err := ValidateToken(secret, ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty token: got %v", err)
	}
	if _, err := GenerateToken(nil, "x", "x", "staff", time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("empty secret: got %v", err)
	}
}
