package identity

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

type ctxKey int

const (
	storeKey ctxKey = iota
	authKey
)

// Attach gives every request its cookie Store.
func Attach(opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := NewStore(w, r, opts)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), storeKey, st)))
		})
	}
}

// StoreFrom returns the request's Store. Outside Attach it returns a store
// that reads the request but cannot write.
func StoreFrom(r *http.Request) *Store {
	if st, ok := r.Context().Value(storeKey).(*Store); ok {
		return st
	}
	return NewStore(discardWriter{}, r, CookieOptions{})
}

// AuthFrom returns the auth state resolved by a guard, or Loading.
func AuthFrom(r *http.Request) Auth {
	if a, ok := r.Context().Value(authKey).(Auth); ok {
		return a
	}
	return Auth{}
}

func withAuth(r *http.Request, a Auth) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authKey, a))
}

func loginRedirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

// RequireAuth sends unauthenticated visitors to the login page.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := s.Check(r.Context(), StoreFrom(r))
		if !a.Authenticated() {
			loginRedirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, withAuth(r, a))
	})
}

// RequireAdmin sends unauthenticated visitors to the admin login and
// authenticated non-admins to the student dashboard.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := s.Check(r.Context(), StoreFrom(r))
		if !a.Authenticated() {
			loginRedirect(w, r, "/admin/login")
			return
		}
		if !a.IsAdmin {
			http.Redirect(w, r, "/student/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, withAuth(r, a))
	})
}

// RequireAttendee blocks student pages until an attendee id is cached. With
// a session in the route the visitor goes to that session's join page.
func RequireAttendee(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := StoreFrom(r).Attendee(); ok {
			next.ServeHTTP(w, r)
			return
		}
		target := "/"
		if id := chi.URLParam(r, "sessionID"); id != "" {
			target = "/sessions/" + url.PathEscape(id) + "/join"
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

type discardWriter struct{}

func (discardWriter) Header() http.Header         { return http.Header{} }
func (discardWriter) Write(b []byte) (int, error) { return len(b), nil }
func (discardWriter) WriteHeader(int)             {}
