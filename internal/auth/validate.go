package auth

import (
	"regexp"
	"strings"
	"unicode"
)

// emailPattern mirrors the validation the API has always shipped with.
// It accepts consecutive dots in the local part (a..b@host.tld); that gap
// is pinned by tests and must not be changed casually.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePassword checks the password policy top to bottom and returns
// the first violated rule's message.
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters long"
	}
	if !containsFunc(password, unicode.IsUpper) {
		return false, "Password must contain at least one uppercase letter"
	}
	if !containsFunc(password, unicode.IsLower) {
		return false, "Password must contain at least one lowercase letter"
	}
	if !containsFunc(password, unicode.IsDigit) {
		return false, "Password must contain at least one number"
	}
	return true, "Password is valid"
}

func ValidateName(name string) bool {
	return len(strings.TrimSpace(name)) >= 2
}

func containsFunc(s string, fn func(rune) bool) bool {
	for _, r := range s {
		if fn(r) {
			return true
		}
	}
	return false
}
