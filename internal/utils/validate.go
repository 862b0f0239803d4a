package utils

import (
	"regexp"
	"strings"
)

// Validation rules for registration input. Each failed rule is reported
// as a machine-readable code so clients can highlight the exact field.
// The rules are checked before any mutation; the database's unique
// indexes remain the authority on login/email collisions.

var (
	loginRe       = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailRe       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	displayNameRe = regexp.MustCompile(`^[a-zA-Z\x{00C0}-\x{017F}' ]+$`)
)

// ValidateLogin reports whether a login is 3-20 characters of letters,
// digits and underscores.
func ValidateLogin(login string) bool {
	return loginRe.MatchString(login)
}

// ValidateEmail reports whether an address is mailbox-shaped. The check
// is intentionally loose; deliverability is proven by the confirmation
// exchange, not by the regex.
func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

// ValidatePassword reports whether a password is 8-256 characters and
// contains at least one lowercase letter, one uppercase letter, one
// digit and one special character.
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > 256 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune("!@#$%^&*", r):
			special = true
		}
	}
	return lower && upper && digit && special
}

// ValidateDisplayName reports whether an optional display name is at
// most 256 characters of letters (including Latin diacritics),
// apostrophes and spaces. An empty name is valid: the field is optional.
func ValidateDisplayName(name string) bool {
	if name == "" {
		return true
	}
	if len([]rune(name)) > 256 {
		return false
	}
	return displayNameRe.MatchString(name)
}

// ValidateRegistration runs every registration rule and returns the list
// of violated rule codes. A nil result means the input is acceptable.
func ValidateRegistration(login, email, password, displayName string) []string {
	var errs []string
	if login == "" {
		errs = append(errs, "username_required")
	} else if !ValidateLogin(login) {
		errs = append(errs, "username_invalid")
	}
	if password == "" {
		errs = append(errs, "password_required")
	} else if !ValidatePassword(password) {
		errs = append(errs, "password_invalid")
	}
	if email == "" {
		errs = append(errs, "email_required")
	} else if !ValidateEmail(email) {
		errs = append(errs, "email_invalid")
	}
	if displayName != "" {
		if len([]rune(displayName)) > 256 {
			errs = append(errs, "full_name_too_long")
		}
		if !displayNameRe.MatchString(displayName) {
			errs = append(errs, "full_name_invalid")
		}
	}
	return errs
}
