package services

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reLetters = regexp.MustCompile(`[A-Za-z]`)
	// Only allow digits, spaces, +, -, (, )
	reAllowed = regexp.MustCompile(`^[0-9+\-\s\(\)]+$`)
	// Indian mobile: 10 digits starting 6-9
	reMobile = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

const (
	MsgPhoneRequired = "Please enter your phone number"
	MsgPhoneLength   = "Phone number must be exactly 10 digits"
	MsgPhoneFormat   = "Please enter a valid Indian phone number (starting with 6-9)"
)

// NormPhone reduces a phone number to its 10 local digits.
// Rules: strip spaces/dashes/parens; +91.. / 0091.. / 91.. (12 digits) -> drop country code; 0.. (11 digits) -> drop trunk 0
func NormPhone(p string) string {
	s := strings.TrimSpace(p)

	if s == "" {
		return ""
	}
	if reLetters.MatchString(s) {
		return ""
	}
	if !reAllowed.MatchString(s) {
		return ""
	}

	s = digitsOnly(s)

	switch {
	case len(s) == 14 && strings.HasPrefix(s, "0091"):
		s = s[4:]
	case len(s) == 12 && strings.HasPrefix(s, "91"):
		s = s[2:]
	case len(s) == 11 && strings.HasPrefix(s, "0"):
		s = s[1:]
	}
	return s
}

// ValidatePhone returns the normalized number or the message to show.
func ValidatePhone(p string) (string, string) {
	if strings.TrimSpace(p) == "" {
		return "", MsgPhoneRequired
	}
	n := NormPhone(p)
	if len(n) != 10 {
		return "", MsgPhoneLength
	}
	if !reMobile.MatchString(n) {
		return "", MsgPhoneFormat
	}
	return n, ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
