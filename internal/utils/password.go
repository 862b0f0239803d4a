package utils

import "golang.org/x/crypto/bcrypt"

// PasswordHasher abstracts password hashing and verification so the
// algorithm can be swapped without touching handlers or repositories.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// BcryptHasher is the default PasswordHasher backed by bcrypt.
type BcryptHasher struct {
	Cost int // bcrypt cost factor, see bcrypt.DefaultCost
}

// Hash returns the bcrypt hash of plain using the configured cost.
func (h BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt hash and a plain password.
func (h BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
