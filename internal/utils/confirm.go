package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrConfirmTokenInvalid is returned when a confirmation token fails to
// parse, is expired, or was signed with a different secret.
var ErrConfirmTokenInvalid = errors.New("invalid confirmation token")

// NewConfirmToken builds and signs an HS256 JWT that proves ownership of
// a freshly registered account. The subject claim carries the login; the
// token expires after ttlHours. Session tokens are deliberately not JWTs
// (they are opaque random strings checked against the sessions table);
// signed tokens are used only for this one-shot confirmation exchange,
// which must work without any server-side state.
func NewConfirmToken(secret, login string, ttlHours int) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": login,
		"exp": now.Add(time.Duration(ttlHours) * time.Hour).Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseConfirmToken validates a confirmation token and returns the login
// it was issued for. Any parse, signature or expiry failure is reported
// as ErrConfirmTokenInvalid.
func ParseConfirmToken(secret, token string) (string, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrConfirmTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", ErrConfirmTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrConfirmTokenInvalid
	}
	login, ok := claims["sub"].(string)
	if !ok || login == "" {
		return "", ErrConfirmTokenInvalid
	}
	return login, nil
}
