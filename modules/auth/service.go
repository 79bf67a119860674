package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/collabnotes/collabnotes/domain/user"
)

// Validation limits.
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	searchResultLimit = 10
)

var (
	// ErrUserExists is returned when the email or username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation is returned for malformed registration input.
	ErrValidation = errors.New("validation failed")
)

// Service implements registration, login and token verification.
type Service struct {
	repo   *UserRepository
	hasher *PasswordHasher
	tokens *JWTManager
}

// NewService creates a new auth service.
func NewService(repo *UserRepository, hasher *PasswordHasher, tokens *JWTManager) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates an account and returns the user with a signed token.
func (s *Service) Register(_ context.Context, username, email, password string) (*user.User, string, error) {
	if len(username) < MinUsernameLength {
		return nil, "", fmt.Errorf("%w: username must be at least %d characters", ErrValidation, MinUsernameLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}

	exists, err := s.repo.ExistsByEmailOrUsername(email, username)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		LastSeen:     time.Now(),
	}
	if err := s.repo.Create(u); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(u.ID, u.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return u, token, nil
}

// Login verifies credentials and returns the user with a signed token.
func (s *Service) Login(_ context.Context, email, password string) (*user.User, string, error) {
	u, err := s.repo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(u.ID, u.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return u, token, nil
}

// ValidateToken verifies a bearer token and returns the caller's identity.
func (s *Service) ValidateToken(_ context.Context, token string) (*user.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	// The account may have been removed since the token was issued.
	if _, err := s.repo.FindByID(claims.UserID); err != nil {
		return nil, ErrInvalidToken
	}

	return &user.Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(_ context.Context, userID string) (*user.User, error) {
	return s.repo.FindByID(userID)
}

// SearchUsers finds users matching the query, excluding the caller.
func (s *Service) SearchUsers(_ context.Context, query, callerID string) ([]user.Summary, error) {
	if len(query) < 2 {
		return nil, fmt.Errorf("%w: search query too short", ErrValidation)
	}

	users, err := s.repo.Search(query, callerID, searchResultLimit)
	if err != nil {
		return nil, err
	}

	summaries := make([]user.Summary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summarize())
	}
	return summaries, nil
}
