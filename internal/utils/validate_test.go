package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLogin(t *testing.T) {
	tests := []struct {
		name  string
		login string
		want  bool
	}{
		{"simple", "alice", true},
		{"with underscore and digits", "bob_42", true},
		{"minimum length", "abc", true},
		{"maximum length", strings.Repeat("a", 20), true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 21), false},
		{"dots rejected", "al.ice", false},
		{"dashes rejected", "al-ice", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateLogin(tt.login))
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"all classes", "Str0ng!pass", true},
		{"missing special", "Str0ngpass", false},
		{"missing digit", "Strong!pass", false},
		{"missing upper", "str0ng!pass", false},
		{"missing lower", "STR0NG!PASS", false},
		{"too short", "S0!a", false},
		{"too long", "Aa1!" + strings.Repeat("x", 260), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.password))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("alice@example.com"))
	assert.True(t, ValidateEmail("a.b+tag@sub.example.org"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("missing@tld"))
	assert.False(t, ValidateEmail("@example.com"))
}

func TestValidateDisplayName(t *testing.T) {
	assert.True(t, ValidateDisplayName(""))
	assert.True(t, ValidateDisplayName("Alice O'Connor"))
	assert.True(t, ValidateDisplayName("Zoë Müller"))
	assert.False(t, ValidateDisplayName("with4digit"))
	assert.False(t, ValidateDisplayName(strings.Repeat("a", 257)))
}

func TestValidateRegistration_CollectsAllViolations(t *testing.T) {
	errs := ValidateRegistration("x", "bad", "weak", "name-with-dash")
	assert.Contains(t, errs, "username_invalid")
	assert.Contains(t, errs, "password_invalid")
	assert.Contains(t, errs, "email_invalid")
	assert.Contains(t, errs, "full_name_invalid")
}

func TestValidateRegistration_RequiredCodes(t *testing.T) {
	errs := ValidateRegistration("", "", "", "")
	assert.ElementsMatch(t, []string{"username_required", "password_required", "email_required"}, errs)
}

func TestValidateRegistration_Valid(t *testing.T) {
	assert.Nil(t, ValidateRegistration("alice", "alice@example.com", "Str0ng!pass", "Alice"))
}
