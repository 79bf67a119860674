package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig())

	token, err := manager.Generate("user-123", "alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("expected user ID %q, got %q", "user-123", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("expected username %q, got %q", "alice", claims.Username)
	}
	if claims.Issuer != "collabnotes" {
		t.Errorf("expected issuer %q, got %q", "collabnotes", claims.Issuer)
	}
}

func TestJWTManager_ValidateWrongSecret(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig())
	token, err := manager.Generate("user-123", "alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	other := NewJWTManager(JWTConfig{
		SecretKey:     "a-different-secret",
		TokenDuration: time.Hour,
		Issuer:        "collabnotes",
	})
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTManager_ValidateExpired(t *testing.T) {
	manager := NewJWTManager(JWTConfig{
		SecretKey:     "test-secret",
		TokenDuration: -time.Minute,
		Issuer:        "collabnotes",
	})
	token, err := manager.Generate("user-123", "alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := manager.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_ValidateGarbage(t *testing.T) {
	manager := NewJWTManager(DefaultJWTConfig())
	if _, err := manager.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPasswordHasher_Roundtrip(t *testing.T) {
	hasher := NewPasswordHasher()

	hash, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash equals plaintext")
	}

	if !hasher.Verify("secret123", hash) {
		t.Error("Verify() rejected the correct password")
	}
	if hasher.Verify("wrong-password", hash) {
		t.Error("Verify() accepted a wrong password")
	}
}
