package services

import (
	"net/mail"
	"strings"
)

const MsgEmailRequired = "Email address is required."

// NormEmail lowercases and trims an address and reports whether it parses.
// The backend matches attendees by exact email, so every flow goes through here.
func NormEmail(s string) (string, bool) {
	e := strings.TrimSpace(strings.ToLower(s))
	if e == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return e, false
	}
	return e, true
}

// NormCode uppercases a session code the way students are told to type it.
func NormCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
