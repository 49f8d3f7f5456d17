package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLen    = 6
	MaxPasswordLen    = 72 // bcrypt ignores bytes beyond 72
)

// ErrPasswordLength is returned by ValidatePassword for out-of-range lengths
var ErrPasswordLength = fmt.Errorf("password must be at least %d characters", MinPasswordLen)

// Hasher hashes and verifies passwords with bcrypt
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher; a cost outside bcrypt's range falls back to DefaultBcryptCost
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of password
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (h *Hasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the minimum and maximum password length
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrPasswordLength
	}
	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLen)
	}
	return nil
}
