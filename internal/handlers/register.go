package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/models"
)

// --- Student join flow: request code -> verify -> register or log in ---

// GET /sessions/{sessionID}/join
func JoinForm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			a.renderError(w, r, http.StatusNotFound, errText["invalid_session"], "/")
			return
		}
		s, err := a.Client.Session(r.Context(), id)
		if err != nil {
			a.renderError(w, r, statusFor(err), api.UserMessage(err, "Failed to load session details."), "/")
			return
		}
		a.render(w, r, http.StatusOK, "join.tmpl", map[string]any{
			"Title":   s.Title,
			"Session": s,
			"Email":   identity.StoreFrom(r).TempEmail(),
		})
	}
}

// POST /sessions/{sessionID}/join
func JoinSubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			a.renderError(w, r, http.StatusNotFound, errText["invalid_session"], "/")
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s, err := a.Client.Session(r.Context(), id)
		if err != nil {
			a.renderError(w, r, statusFor(err), api.UserMessage(err, "Failed to load session details."), "/")
			return
		}

		st := identity.StoreFrom(r)
		email := r.FormValue("email")
		res := a.Join.RequestCode(r.Context(), st, email, s.SessionCode)
		if !res.OK {
			a.render(w, r, http.StatusUnprocessableEntity, "join.tmpl", map[string]any{
				"Title":   s.Title,
				"Session": s,
				"Email":   email,
				"Flash":   &Flash{Kind: "error", Text: res.Message},
			})
			return
		}
		redirectWith(w, r, fmt.Sprintf("/verify?session=%d", s.ID), "ok", "code_sent")
	}
}

// GET /verify?session=&code=
func VerifyForm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		a.renderVerify(w, r, http.StatusOK, q.Get("session"), q.Get("code"), identity.StoreFrom(r).TempEmail(), nil)
	}
}

func (a *App) renderVerify(w http.ResponseWriter, r *http.Request, status int, sessionRaw, code, email string, flash *Flash) {
	data := map[string]any{
		"Title": "Verify session code",
		"Code":  strings.ToUpper(code),
		"Email": email,
	}
	if flash != nil {
		data["Flash"] = flash
	}
	if id, err := strconv.Atoi(sessionRaw); err == nil && id > 0 {
		data["SessionID"] = id
		if s, err := a.Client.Session(r.Context(), id); err == nil {
			data["Session"] = &s
		}
	}
	a.render(w, r, status, "verify.tmpl", data)
}

// POST /verify
func VerifySubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sessionRaw := r.FormValue("session")
		code := r.FormValue("code")
		email := r.FormValue("email")

		res, v := a.Join.Verify(r.Context(), identity.StoreFrom(r), code, email, formInt(r, "session"))
		if !res.OK {
			a.renderVerify(w, r, http.StatusUnprocessableEntity, sessionRaw, code, email, &Flash{Kind: "error", Text: res.Message})
			return
		}

		q := url.Values{"session": {strconv.Itoa(v.Session.ID)}, "code": {v.Code}}
		if v.IsNewUser {
			http.Redirect(w, r, "/register?"+q.Encode(), http.StatusSeeOther)
			return
		}
		q.Del("code")
		http.Redirect(w, r, "/student/login?"+q.Encode(), http.StatusSeeOther)
	}
}

// GET /register?session=&code=
func RegisterForm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		id, err := strconv.Atoi(q.Get("session"))
		code := strings.TrimSpace(q.Get("code"))
		if err != nil || id <= 0 || code == "" {
			http.Redirect(w, r, "/?error=missing_code", http.StatusSeeOther)
			return
		}
		email := identity.StoreFrom(r).TempEmail()
		if email == "" {
			redirectWith(w, r, fmt.Sprintf("/verify?session=%d", id), "error", "missing_code")
			return
		}
		a.renderRegister(w, r, http.StatusOK, id, code, email, models.StudentRegistration{}, nil)
	}
}

func (a *App) renderRegister(w http.ResponseWriter, r *http.Request, status, sessionID int, code, email string, form models.StudentRegistration, flash *Flash) {
	s, err := a.Client.Session(r.Context(), sessionID)
	if err != nil {
		a.renderError(w, r, statusFor(err), api.UserMessage(err, "Failed to load session details."), "/")
		return
	}
	data := map[string]any{
		"Title":   "Register",
		"Session": s,
		"Code":    code,
		"Email":   email,
		"Form":    form,
	}
	if flash != nil {
		data["Flash"] = flash
	}
	a.render(w, r, status, "register.tmpl", data)
}

// POST /register
func RegisterSubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sessionID := formInt(r, "session")
		if sessionID <= 0 {
			http.Redirect(w, r, "/?error=invalid_session", http.StatusSeeOther)
			return
		}
		st := identity.StoreFrom(r)
		email := r.FormValue("email")
		if email == "" {
			email = st.TempEmail()
		}
		form := models.StudentRegistration{
			Email:       email,
			Name:        r.FormValue("name"),
			Phone:       r.FormValue("phone"),
			SessionCode: r.FormValue("code"),
			Password:    r.FormValue("password"),
		}

		res, att := a.Join.Register(r.Context(), st, sessionID, form)
		if !res.OK {
			form.Password = ""
			a.renderRegister(w, r, http.StatusUnprocessableEntity, sessionID, form.SessionCode, email, form, &Flash{Kind: "error", Text: res.Message})
			return
		}
		redirectWith(w, r, fmt.Sprintf("/student/sessions/%d", att.ClassSession.ID), "ok", "registered")
	}
}

// GET /student/login
func StudentLoginForm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		email := q.Get("email")
		if email == "" {
			email = identity.StoreFrom(r).TempEmail()
		}
		a.render(w, r, http.StatusOK, "student_login.tmpl", map[string]any{
			"Title":     "Student login",
			"Email":     email,
			"SessionID": q.Get("session"),
		})
	}
}

// POST /student/login
func StudentLoginSubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		email := r.FormValue("email")
		res, who := a.Join.Login(r.Context(), identity.StoreFrom(r), email, r.FormValue("password"))
		if !res.OK {
			a.render(w, r, http.StatusUnprocessableEntity, "student_login.tmpl", map[string]any{
				"Title":     "Student login",
				"Email":     email,
				"SessionID": r.FormValue("session"),
				"Flash":     &Flash{Kind: "error", Text: res.Message},
			})
			return
		}

		target := "/student/dashboard"
		if id := formInt(r, "session"); id > 0 {
			target = fmt.Sprintf("/student/sessions/%d", id)
		} else if who.SessionID > 0 {
			target = fmt.Sprintf("/student/sessions/%d", who.SessionID)
		}
		redirectWith(w, r, target, "ok", "logged_in")
	}
}

// POST /student/logout
func StudentLogout(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.Identity.ForgetStudent(identity.StoreFrom(r))
		http.Redirect(w, r, "/?ok=logged_out", http.StatusSeeOther)
	}
}

// statusFor picks the page status for a failed backend read.
func statusFor(err error) int {
	switch s := api.StatusOf(err); {
	case s == http.StatusNotFound:
		return http.StatusNotFound
	case s >= 400 && s < 500:
		return s
	default:
		return http.StatusBadGateway
	}
}
