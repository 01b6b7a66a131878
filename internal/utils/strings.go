package utils

import (
	"net/mail"
	"strings"
	"unicode"
)

// NormalizeString trims whitespace and normalizes string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// OrDefault returns fallback when s is blank.
func OrDefault(s, fallback string) string {
	if NormalizeString(s) == "" {
		return fallback
	}
	return s
}

// IsValidEmail accepts a bare address with a dotted domain.
func IsValidEmail(email string) bool {
	email = NormalizeString(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// DigitsOnly keeps a leading + and every digit. WhatsApp numbers arrive
// with spaces, dashes and brackets.
func DigitsOnly(phone string) string {
	cleaned := NormalizeString(phone)
	var b strings.Builder
	for i, r := range cleaned {
		if (i == 0 && r == '+') || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidPhone requires at least seven digits after cleaning.
func IsValidPhone(phone string) bool {
	return len(strings.TrimPrefix(DigitsOnly(phone), "+")) >= 7
}
