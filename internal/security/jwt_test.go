package security

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateAndParseToken(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken("jwt-secret", userID, "user@example.dz", "Test User", "CITIZEN", 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken("jwt-secret", token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != "CITIZEN" {
		t.Fatalf("Role = %q, want CITIZEN", claims.Role)
	}
	if claims.Email != "user@example.dz" {
		t.Fatalf("Email = %q", claims.Email)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("jwt-secret", uuid.New(), "user@example.dz", "Test User", "ADMIN", 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err = ParseToken("other-secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken with wrong secret: err = %v, want ErrInvalidToken", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken("jwt-secret", uuid.New(), "user@example.dz", "Test User", "ADMIN", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err = ParseToken("jwt-secret", token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("ParseToken with expired token: err = %v, want ErrExpiredToken", err)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken("jwt-secret", "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken garbage: err = %v, want ErrInvalidToken", err)
	}
}
