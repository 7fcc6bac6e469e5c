package handlers

import (
	"net/http"
	"strings"
)

type Flash struct {
	Kind string // "ok" or "error"
	Text string
}

var okText = map[string]string{
	"saved":           "Saved.",
	"created":         "Created.",
	"deleted":         "Deleted.",
	"code_sent":       "We sent the session code to your email.",
	"registered":      "Registration successful! Welcome to your session.",
	"logged_in":       "Welcome back!",
	"logged_out":      "You have been logged out.",
	"account_created": "Account created. You can log in now.",
	"feedback_sent":   "Thank you for your feedback!",
}

var errText = map[string]string{
	"expired":         "Your session has expired. Please log in again.",
	"not_found":       "Not found.",
	"no_attendee":     "Please register or log in first.",
	"session_closed":  "This session is not accepting quiz submissions right now.",
	"already_done":    "You have already submitted the quiz for this session.",
	"attempt_missing": "That quiz attempt has ended. Start the quiz again.",
	"invalid_session": "Invalid or missing session.",
	"missing_code":    "Verify your session code first.",
	"unavailable":     "Unable to reach the server. Please try again.",
	"wrong_attendee":  "This quiz belongs to another student.",
	"validation":      "Please check the form and try again.",
}

// MakeFlash reads query params and/or explicit strings to build a Flash.
// Known keys map to fixed text; anything else is shown as given.
func MakeFlash(r *http.Request, errStr, msgStr string) *Flash {
	q := r.URL.Query()

	errRaw := strings.TrimSpace(q.Get("error"))
	okRaw := strings.TrimSpace(q.Get("ok"))

	if errRaw != "" {
		key := strings.ToLower(errRaw)
		if t, ok := errText[key]; ok {
			return &Flash{Kind: "error", Text: t}
		}
		return &Flash{Kind: "error", Text: errRaw}
	}
	if okRaw != "" {
		key := strings.ToLower(okRaw)
		if t, ok := okText[key]; ok {
			return &Flash{Kind: "ok", Text: t}
		}
		return &Flash{Kind: "ok", Text: okRaw}
	}

	// Fallback to handler-provided messages
	if errStr != "" {
		return &Flash{Kind: "error", Text: errStr}
	}
	if msgStr != "" {
		return &Flash{Kind: "ok", Text: msgStr}
	}
	return nil
}
