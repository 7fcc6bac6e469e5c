package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrUnavailable covers network failures, timeouts and exhausted retries.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrSessionExpired means the refresh token was missing or rejected and
	// the stored tokens have been cleared.
	ErrSessionExpired = errors.New("session expired")
)

// fieldPriority is the order in which field errors are shown to the user.
var fieldPriority = []string{"session_code", "email", "phone", "name"}

// Error is a non-2xx answer from the backend.
type Error struct {
	Status  int
	Detail  string
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = e.FirstFieldError()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, msg)
}

// FirstFieldError picks one field error: known fields in priority order,
// then any other field alphabetically, then non_field_errors.
func (e *Error) FirstFieldError() string {
	if len(e.Fields) == 0 {
		return ""
	}
	for _, f := range fieldPriority {
		if msgs := e.Fields[f]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	rest := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		if f != "non_field_errors" {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	for _, f := range rest {
		if msgs := e.Fields[f]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	if msgs := e.Fields["non_field_errors"]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Display is the single message shown for this error.
func (e *Error) Display(fallback string) string {
	for _, s := range []string{e.FirstFieldError(), e.Message, e.Detail} {
		if s != "" {
			return s
		}
	}
	return fallback
}

func (e *Error) Temporary() bool { return e.Status >= 500 }

func parseError(status int, raw []byte) *Error {
	e := &Error{Status: status}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return e
	}
	for key, val := range body {
		switch key {
		case "detail":
			e.Detail = asString(val)
		case "message", "error":
			if e.Message == "" {
				e.Message = asString(val)
			}
		case "success", "valid":
		default:
			if msgs := asStrings(val); len(msgs) > 0 {
				if e.Fields == nil {
					e.Fields = map[string][]string{}
				}
				e.Fields[key] = msgs
			}
		}
	}
	return e
}

func asString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if msgs := asStrings(raw); len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func asStrings(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

const (
	MsgUnavailable = "Could not reach the server. Please try again."
	MsgExpired     = "Your session has expired. Please log in again."
)

// UserMessage maps err to the text shown on a page: a generic retry prompt
// for network and server failures, the backend's own message for 4xx.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionExpired) {
		return MsgExpired
	}
	if errors.Is(err, ErrUnavailable) {
		return MsgUnavailable
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Temporary() {
			return MsgUnavailable
		}
		return strings.TrimSpace(apiErr.Display(fallback))
	}
	return fallback
}
