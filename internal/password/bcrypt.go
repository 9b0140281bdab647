package password

import (
	"errors"
	"fmt"

	"github.com/academictracker/api/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch indicates the password does not match the stored hash.
var ErrMismatch = errors.New("password mismatch")

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher, clamping the configured cost to bcrypt's bounds.
func NewHasher(cfg config.SecurityConfig) *Hasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash creates a bcrypt hash for the supplied plain text password.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare verifies that the specified password matches the stored hash.
func (h *Hasher) Compare(hash string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
