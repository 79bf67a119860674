package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the work factor for new password hashes. Raising
// it only affects passwords hashed after the change; existing hashes
// keep the cost they were created with.
const DefaultBcryptCost = 12

// PasswordHasher hashes account passwords and checks login attempts
// against the stored hash.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the default cost.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: DefaultBcryptCost}
}

// Hash derives a bcrypt hash from the plaintext password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether the password matches the stored hash.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
