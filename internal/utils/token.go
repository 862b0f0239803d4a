package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for session tokens
	"encoding/hex"  // hex encoding functions
	"time"          // time utilities for generating expirations
)

// SessionToken represents an opaque bearer token used to authenticate
// requests. The Raw field contains the raw token string returned to the
// client. The Exp field records when it expires. In the database only a
// SHA-256 hash of the raw string is stored, so a leaked table cannot be
// replayed as live credentials.
type SessionToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewSessionToken returns a cryptographically secure random token and
// its expiration time. The ttlDays parameter controls how many days the
// session stays valid.
func NewSessionToken(ttlDays int) (SessionToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashSessionRaw returns the SHA-256 hash of the raw session token as a
// hex string. Only the hash is ever persisted.
func HashSessionRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
