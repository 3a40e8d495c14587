package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	multiSpaceRegex = regexp.MustCompile(`\s+`)
)

// NormalizeEmail trims and lowercases an address before it is validated or stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// Fields splits a command line on runs of whitespace.
func Fields(line string) []string {
	line = strings.TrimSpace(multiSpaceRegex.ReplaceAllString(line, " "))
	if line == "" {
		return nil
	}
	return strings.Split(line, " ")
}

// MaskCard keeps the last four digits of a card number.
func MaskCard(number string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

func StrPtr(s string) *string {
	return &s
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
