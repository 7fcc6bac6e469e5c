package handlers

import (
	"net/http"
	"strings"

	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/models"
)

// GET /login
func LoginForm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "login.tmpl", map[string]any{
			"Title": "Log in",
			"Next":  r.URL.Query().Get("next"),
		})
	}
}

// POST /login
func LoginSubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		next := r.FormValue("next")

		res, auth := a.Identity.Login(r.Context(), identity.StoreFrom(r), username, r.FormValue("password"))
		if !res.OK {
			a.render(w, r, http.StatusUnauthorized, "login.tmpl", map[string]any{
				"Title":    "Log in",
				"Next":     next,
				"Username": username,
				"Flash":    &Flash{Kind: "error", Text: res.Message},
			})
			return
		}
		fallback := "/student/dashboard"
		if auth.IsAdmin {
			fallback = "/admin"
		}
		http.Redirect(w, r, safeNext(next, fallback), http.StatusSeeOther)
	}
}

// POST /logout
func Logout(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.Identity.Logout(r.Context(), identity.StoreFrom(r))
		http.Redirect(w, r, "/?ok=logged_out", http.StatusSeeOther)
	}
}

// GET /account/register
func AccountRegisterForm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "account_register.tmpl", map[string]any{
			"Title": "Create an account",
			"Form":  models.AccountRegistration{},
		})
	}
}

// POST /account/register
func AccountRegisterSubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in := models.AccountRegistration{
			Username:  strings.TrimSpace(r.FormValue("username")),
			Email:     strings.TrimSpace(r.FormValue("email")),
			Password:  r.FormValue("password"),
			Password2: r.FormValue("password2"),
			FirstName: strings.TrimSpace(r.FormValue("first_name")),
			LastName:  strings.TrimSpace(r.FormValue("last_name")),
		}
		if res := a.Identity.Register(r.Context(), in); !res.OK {
			in.Password, in.Password2 = "", ""
			a.render(w, r, http.StatusUnprocessableEntity, "account_register.tmpl", map[string]any{
				"Title": "Create an account",
				"Form":  in,
				"Flash": &Flash{Kind: "error", Text: res.Message},
			})
			return
		}
		http.Redirect(w, r, "/login?ok=account_created", http.StatusSeeOther)
	}
}

// GET /account
func AccountHome(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "account.tmpl", map[string]any{"Title": "My account"})
	}
}
