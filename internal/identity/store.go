package identity

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lojf/quizdesk/internal/models"
)

type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// Store is the persisted client state of one visitor, read from the request
// cookies and written back on the response. Values written during the
// request are visible to later reads in the same request.
type Store struct {
	w       http.ResponseWriter
	r       *http.Request
	opts    CookieOptions
	written map[string]string
}

func NewStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *Store {
	return &Store{w: w, r: r, opts: opts, written: map[string]string{}}
}

func (s *Store) get(key string) string {
	if v, ok := s.written[key]; ok {
		return v
	}
	c, err := s.r.Cookie(key)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return v
}

func (s *Store) set(key, value string) {
	s.written[key] = value
	c := &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.Expires = time.Unix(0, 0)
		c.MaxAge = -1
	} else if s.opts.MaxAge > 0 {
		c.Expires = time.Now().Add(s.opts.MaxAge)
	}
	http.SetCookie(s.w, c)
}

// clear deletes key only if the visitor holds it, so idempotent clears don't
// spray Set-Cookie headers.
func (s *Store) clear(key string) {
	if _, ok := s.written[key]; !ok {
		if _, err := s.r.Cookie(key); err != nil {
			return
		}
	}
	s.set(key, "")
}

func (s *Store) Tokens() (string, string) {
	return s.get(keyAccessToken), s.get(keyRefreshToken)
}

func (s *Store) SetTokens(access, refresh string) {
	s.set(keyAccessToken, access)
	s.set(keyRefreshToken, refresh)
}

func (s *Store) ClearTokens() {
	s.clear(keyAccessToken)
	s.clear(keyRefreshToken)
}

func (s *Store) UserType() string { return s.get(keyUserType) }

func (s *Store) setUserType(v string) {
	if v == "" {
		s.clear(keyUserType)
		return
	}
	s.set(keyUserType, v)
}

// Attendee returns the cached student identity. ok is false unless a valid
// attendee id is present.
func (s *Store) Attendee() (models.StudentIdentity, bool) {
	id, err := strconv.Atoi(s.get(keyAttendeeID))
	if err != nil || id <= 0 {
		return models.StudentIdentity{}, false
	}
	return models.StudentIdentity{
		ID:    id,
		Email: s.get(keyAttendeeEmail),
		Name:  s.get(keyAttendeeName),
	}, true
}

func (s *Store) SetAttendee(a models.StudentIdentity) {
	s.set(keyAttendeeID, strconv.Itoa(a.ID))
	s.set(keyAttendeeEmail, strings.TrimSpace(a.Email))
	s.set(keyAttendeeName, strings.TrimSpace(a.Name))
}

func (s *Store) ClearAttendee() {
	s.clear(keyAttendeeID)
	s.clear(keyAttendeeEmail)
	s.clear(keyAttendeeName)
}

func (s *Store) TempEmail() string { return s.get(keyTempEmail) }

func (s *Store) SetTempEmail(email string) {
	if email == "" {
		s.clear(keyTempEmail)
		return
	}
	s.set(keyTempEmail, email)
}
