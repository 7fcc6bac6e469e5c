package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/cache"
	"github.com/lojf/quizdesk/internal/models"
)

// State of the auth context. Loading is the zero value and only exists
// until Check resolves.
type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

type Auth struct {
	State   State
	Profile models.Profile
	IsAdmin bool
}

func (a Auth) Authenticated() bool { return a.State == Authenticated }

// Reason says why an operation failed.
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonUnavailable        Reason = "unavailable"
	ReasonValidation         Reason = "validation"
	ReasonRejected           Reason = "rejected"
)

// Result is returned by every mutating operation instead of an error.
type Result struct {
	OK      bool
	Reason  Reason
	Message string
}

func ok() Result { return Result{OK: true} }

func fail(reason Reason, msg string) Result {
	return Result{Reason: reason, Message: msg}
}

// FailFrom classifies a backend error. 400/401 on a credentials call means
// the credentials were wrong.
func FailFrom(err error, invalidMsg string) Result {
	if errors.Is(err, api.ErrUnavailable) {
		return fail(ReasonUnavailable, api.MsgUnavailable)
	}
	switch status := api.StatusOf(err); {
	case status == http.StatusUnauthorized || status == http.StatusBadRequest || status == http.StatusForbidden:
		return fail(ReasonInvalidCredentials, api.UserMessage(err, invalidMsg))
	case status >= 500 || status == 0:
		return fail(ReasonUnavailable, api.MsgUnavailable)
	default:
		return fail(ReasonRejected, api.UserMessage(err, invalidMsg))
	}
}

const (
	msgInvalidLogin   = "Invalid username or password."
	msgInvalidStudent = "Invalid email or password."
	msgNotAdmin       = "This account does not have admin access."
)

// Service is the single owner of authentication and student identity state.
type Service struct {
	client   *api.Client
	profiles cache.Profiles
	logger   zerolog.Logger
}

func NewService(client *api.Client, profiles cache.Profiles, logger zerolog.Logger) *Service {
	return &Service{client: client, profiles: profiles, logger: logger}
}

// Check resolves the auth state from the stored tokens. A failed profile
// fetch clears the tokens.
func (s *Service) Check(ctx context.Context, st *Store) Auth {
	access, _ := st.Tokens()
	if access == "" {
		return Auth{State: Unauthenticated}
	}

	if p, found, err := s.profiles.Get(ctx, access); err == nil && found {
		return s.auth(st, p)
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("Profile cache read failed")
	}

	p, err := s.client.WithTokens(st).Profile(ctx)
	if err != nil {
		s.logger.Info().Err(err).Msg("Stored token rejected; clearing")
		st.ClearTokens()
		st.setUserType("")
		return Auth{State: Unauthenticated}
	}

	// The client may have refreshed; cache under the token now stored.
	access, _ = st.Tokens()
	s.remember(ctx, access, p)
	return s.auth(st, p)
}

func (s *Service) auth(st *Store, p models.Profile) Auth {
	// The user_type cookie is client-writable; only the profile grants admin.
	return Auth{State: Authenticated, Profile: p, IsAdmin: isAdmin(p)}
}

func isAdmin(p models.Profile) bool {
	return p.IsStaff || p.Role == userTypeAdmin
}

func (s *Service) remember(ctx context.Context, access string, p models.Profile) {
	if access == "" {
		return
	}
	if err := s.profiles.Set(ctx, access, p); err != nil {
		s.logger.Warn().Err(err).Msg("Profile cache write failed")
	}
}

// Login authenticates with username and password. Tokens are persisted only
// after the profile fetch succeeds.
func (s *Service) Login(ctx context.Context, st *Store, username, password string) (Result, Auth) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fail(ReasonValidation, "Username and password are required."), Auth{State: Unauthenticated}
	}

	pair, err := s.client.ObtainToken(ctx, username, password)
	if err != nil {
		s.logger.Info().Str("username", username).Err(err).Msg("Login rejected")
		return FailFrom(err, msgInvalidLogin), Auth{State: Unauthenticated}
	}

	pending := api.NewMemoryTokens(pair.Access, pair.Refresh)
	p, err := s.client.WithTokens(pending).Profile(ctx)
	if err != nil {
		s.logger.Warn().Str("username", username).Err(err).Msg("Profile fetch after login failed")
		return FailFrom(err, msgInvalidLogin), Auth{State: Unauthenticated}
	}

	access, refresh := pending.Tokens()
	st.SetTokens(access, refresh)
	s.remember(ctx, access, p)
	return ok(), s.auth(st, p)
}

// AdminLogin is Login for staff accounts. A valid login whose profile is not
// staff is turned away and leaves no tokens behind.
func (s *Service) AdminLogin(ctx context.Context, st *Store, username, password string) (Result, Auth) {
	res, a := s.Login(ctx, st, username, password)
	if !res.OK {
		return res, a
	}
	access, _ := st.Tokens()
	if !a.IsAdmin {
		s.logger.Info().Str("username", username).Str("subject", api.Subject(access)).Msg("Admin login refused: not staff")
		s.Logout(ctx, st)
		return fail(ReasonRejected, msgNotAdmin), Auth{State: Unauthenticated}
	}
	st.setUserType(userTypeAdmin)
	s.logger.Info().Str("username", username).Str("subject", api.Subject(access)).Msg("Admin logged in")
	return res, a
}

// Logout drops tokens, the admin marker and the cached profile. Calling it
// without a session is a no-op.
func (s *Service) Logout(ctx context.Context, st *Store) {
	if access, _ := st.Tokens(); access != "" {
		if err := s.profiles.Delete(ctx, access); err != nil {
			s.logger.Warn().Err(err).Msg("Profile cache delete failed")
		}
	}
	st.ClearTokens()
	st.setUserType("")
}

// Register creates an account. Local checks run before any network call.
func (s *Service) Register(ctx context.Context, in models.AccountRegistration) Result {
	switch {
	case strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "":
		return fail(ReasonValidation, "Username and email are required.")
	case in.Password != in.Password2:
		return fail(ReasonValidation, "Passwords do not match")
	case len(in.Password) < 8:
		return fail(ReasonValidation, "Password must be at least 8 characters long")
	}
	if err := s.client.RegisterAccount(ctx, in); err != nil {
		return FailFrom(err, "Registration failed. Please try again.")
	}
	return ok()
}

// StudentLogin checks attendee credentials and caches the identity triple.
func (s *Service) StudentLogin(ctx context.Context, st *Store, email, password string) (Result, models.StudentIdentity) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return fail(ReasonValidation, "Email is required."), models.StudentIdentity{}
	}
	res, err := s.client.StudentLogin(ctx, email, password)
	if err != nil {
		return FailFrom(err, msgInvalidStudent), models.StudentIdentity{}
	}
	if !res.Success || res.Attendee == nil || res.Attendee.ID <= 0 {
		msg := res.Message
		if msg == "" {
			msg = msgInvalidStudent
		}
		return fail(ReasonInvalidCredentials, msg), models.StudentIdentity{}
	}
	st.SetAttendee(*res.Attendee)
	st.SetTempEmail("")
	return ok(), *res.Attendee
}

// StudentRegister creates the attendee and caches its identity.
func (s *Service) StudentRegister(ctx context.Context, st *Store, in models.StudentRegistration) (Result, models.Attendee) {
	a, err := s.client.RegisterStudent(ctx, in)
	if err != nil {
		return FailFrom(err, "Registration failed. Please try again."), models.Attendee{}
	}
	if a.ID <= 0 {
		return fail(ReasonRejected, "Registration failed. Please try again."), models.Attendee{}
	}
	name := a.Name
	if name == "" {
		name = in.Name
	}
	st.SetAttendee(models.StudentIdentity{ID: a.ID, Email: in.Email, Name: name, SessionID: a.ClassSession.ID})
	st.SetTempEmail("")
	return ok(), a
}

// ForgetStudent is the student-side logout.
func (s *Service) ForgetStudent(st *Store) {
	st.ClearAttendee()
}
