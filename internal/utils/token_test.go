package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	tok, err := NewSessionToken(7)
	require.NoError(t, err)

	assert.Len(t, tok.Raw, 96) // 48 random bytes hex-encoded
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), tok.Exp, time.Minute)
}

func TestNewSessionToken_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewSessionToken(1)
		require.NoError(t, err)
		assert.False(t, seen[tok.Raw], "token repeated")
		seen[tok.Raw] = true
	}
}

func TestHashSessionRaw(t *testing.T) {
	h1 := HashSessionRaw("some-token")
	h2 := HashSessionRaw("some-token")
	h3 := HashSessionRaw("other-token")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64) // sha256 hex
	assert.NotContains(t, h1, "some-token")
}
