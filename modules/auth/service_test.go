package auth

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/collabnotes/collabnotes/domain/user"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&user.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo := NewUserRepository(setupTestDB(t))
	return NewService(repo, NewPasswordHasher(), NewJWTManager(DefaultJWTConfig()))
}

func TestService_RegisterAndLogin(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	u, token, err := service.Register(ctx, "alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.ID == "" {
		t.Error("registered user has no ID")
	}
	if token == "" {
		t.Error("Register() returned no token")
	}
	if u.PasswordHash == "secret123" {
		t.Error("password stored in plaintext")
	}

	logged, _, err := service.Login(ctx, "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if logged.ID != u.ID {
		t.Errorf("expected user %s, got %s", u.ID, logged.ID)
	}

	if _, _, err := service.Login(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := service.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "ab", "a@example.com", "secret123"},
		{"bad email", "alice", "not-an-email", "secret123"},
		{"short password", "alice", "a@example.com", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := service.Register(ctx, tt.username, tt.email, tt.password); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestService_RegisterDuplicate(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.Register(ctx, "alice", "alice@example.com", "secret123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, _, err := service.Register(ctx, "alice2", "alice@example.com", "secret123"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists for duplicate email, got %v", err)
	}
	if _, _, err := service.Register(ctx, "alice", "other@example.com", "secret123"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists for duplicate username, got %v", err)
	}
}

func TestService_ValidateToken(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	u, token, err := service.Register(ctx, "alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	claims, err := service.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != u.ID || claims.Username != "alice" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	// A token for a deleted account no longer validates.
	if err := service.repo.db.Delete(&user.User{}, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("failed to delete user: %v", err)
	}
	if _, err := service.ValidateToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after account removal, got %v", err)
	}
}

func TestService_SearchUsers(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	alice, _, err := service.Register(ctx, "alice", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, _, err := service.Register(ctx, "alicia", "alicia@example.com", "secret123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, _, err := service.Register(ctx, "bob", "bob@example.com", "secret123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	results, err := service.SearchUsers(ctx, "alic", alice.ID)
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result excluding the caller, got %d", len(results))
	}
	if results[0].Username != "alicia" {
		t.Errorf("expected alicia, got %s", results[0].Username)
	}

	if _, err := service.SearchUsers(ctx, "a", alice.ID); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for short query, got %v", err)
	}
}
