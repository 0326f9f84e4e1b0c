package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is the single operator allowed to change the catalog. Only the
// bcrypt hash of the password is kept.
type Admin struct {
	Email string
	Hash  []byte
}

func NewAdmin(email, hash string) Admin {
	return Admin{Email: normalizeEmail(email), Hash: []byte(hash)}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a Admin) Enabled() bool { return a.Email != "" && len(a.Hash) > 0 }

func (a Admin) Verify(email, password string) error {
	if !a.Enabled() || normalizeEmail(email) != a.Email {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.Hash, []byte(strings.TrimSpace(password))); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
