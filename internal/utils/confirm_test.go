package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmToken_RoundTrip(t *testing.T) {
	tok, err := NewConfirmToken("secret", "alice", 24)
	require.NoError(t, err)

	login, err := ParseConfirmToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", login)
}

func TestParseConfirmToken_WrongSecret(t *testing.T) {
	tok, err := NewConfirmToken("secret", "alice", 24)
	require.NoError(t, err)

	_, err = ParseConfirmToken("other-secret", tok)
	assert.ErrorIs(t, err, ErrConfirmTokenInvalid)
}

func TestParseConfirmToken_Expired(t *testing.T) {
	tok, err := NewConfirmToken("secret", "alice", -1)
	require.NoError(t, err)

	_, err = ParseConfirmToken("secret", tok)
	assert.ErrorIs(t, err, ErrConfirmTokenInvalid)
}

func TestParseConfirmToken_Garbage(t *testing.T) {
	_, err := ParseConfirmToken("secret", "definitely.not.a.jwt")
	assert.ErrorIs(t, err, ErrConfirmTokenInvalid)
}
