package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/models"
)

const (
	msgSendFailed   = "Failed to send session code. Please try again."
	msgInvalidCode  = "Invalid session code. Please check and try again."
	msgNameRequired = "Please enter your full name"
	msgCodeRequired = "Session code is required."
)

// Join drives a student from a session's join page to a cached attendee
// identity: request code, verify code, then register or log in.
type Join struct {
	client   *api.Client
	identity *identity.Service
	logger   zerolog.Logger
}

func NewJoin(client *api.Client, id *identity.Service, logger zerolog.Logger) *Join {
	return &Join{client: client, identity: id, logger: logger}
}

func invalid(msg string) identity.Result {
	return identity.Result{Reason: identity.ReasonValidation, Message: msg}
}

// RequestCode asks the backend to mail the session code and remembers the
// email for the verify step.
func (j *Join) RequestCode(ctx context.Context, st *identity.Store, email, sessionCode string) identity.Result {
	e, ok := NormEmail(email)
	if !ok {
		if e == "" {
			return invalid(MsgEmailRequired)
		}
		return invalid("Please enter a valid email address.")
	}

	res, err := j.client.SendCode(ctx, e, sessionCode)
	if err != nil {
		j.logger.Info().Err(err).Str("email", e).Msg("Send code failed")
		return identity.FailFrom(err, msgSendFailed)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = msgSendFailed
		}
		return identity.Result{Reason: identity.ReasonRejected, Message: msg}
	}
	st.SetTempEmail(e)
	return identity.Result{OK: true, Message: res.Message}
}

// Verification is a checked session code.
type Verification struct {
	Session   models.Session
	Code      string
	Email     string
	IsNewUser bool
}

// Verify checks a session code for an email. expected, when non-zero, pins
// the code to the session the student started from.
func (j *Join) Verify(ctx context.Context, st *identity.Store, code, email string, expected int) (identity.Result, Verification) {
	code = NormCode(code)
	if code == "" {
		return invalid(msgCodeRequired), Verification{}
	}
	if strings.TrimSpace(email) == "" {
		email = st.TempEmail()
	}
	e, ok := NormEmail(email)
	if !ok {
		if e == "" {
			return invalid("Email address is required to verify the session code."), Verification{}
		}
		return invalid("Please enter a valid email address."), Verification{}
	}

	req := models.VerifyCodeRequest{SessionCode: code, Email: e}
	if expected > 0 {
		req.ExpectedSessionID = &expected
	}
	res, err := j.client.VerifyCode(ctx, req)
	if err != nil {
		return identity.FailFrom(err, msgInvalidCode), Verification{}
	}
	if !res.Valid || res.Session == nil {
		msg := res.Message
		if msg == "" {
			msg = msgInvalidCode
		}
		return identity.Result{Reason: identity.ReasonRejected, Message: msg}, Verification{}
	}

	st.SetTempEmail(e)
	return identity.Result{OK: true}, Verification{Session: *res.Session, Code: code, Email: e, IsNewUser: res.IsNewUser}
}

// Register validates the attendee form locally, then creates the attendee.
// Nothing reaches the backend until the form is valid.
func (j *Join) Register(ctx context.Context, st *identity.Store, sessionID int, in models.StudentRegistration) (identity.Result, models.Attendee) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid(msgNameRequired), models.Attendee{}
	}
	phone, msg := ValidatePhone(in.Phone)
	if msg != "" {
		return invalid(msg), models.Attendee{}
	}
	in.Phone = phone

	e, ok := NormEmail(in.Email)
	if !ok {
		return invalid(MsgEmailRequired), models.Attendee{}
	}
	in.Email = e
	in.SessionCode = NormCode(in.SessionCode)
	if in.SessionCode == "" {
		return invalid(msgCodeRequired), models.Attendee{}
	}
	if strings.TrimSpace(in.Password) == "" {
		in.Password = ""
	}

	res, a := j.identity.StudentRegister(ctx, st, in)
	if !res.OK {
		return res, a
	}
	if a.ClassSession.ID == 0 {
		a.ClassSession.ID = sessionID
	}
	j.logger.Info().Int("attendee", a.ID).Int("session", sessionID).Msg("Student registered")
	return res, a
}

// Login is the returning-student path after a verified code.
func (j *Join) Login(ctx context.Context, st *identity.Store, email, password string) (identity.Result, models.StudentIdentity) {
	if strings.TrimSpace(email) == "" {
		email = st.TempEmail()
	}
	e, ok := NormEmail(email)
	if !ok {
		return invalid(MsgEmailRequired), models.StudentIdentity{}
	}
	return j.identity.StudentLogin(ctx, st, e, password)
}
