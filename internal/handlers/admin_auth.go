package handlers

import (
	"net/http"
	"strings"

	"github.com/lojf/quizdesk/internal/identity"
)

// GET /admin/login
func AdminLoginForm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "admin/login.tmpl", map[string]any{
			"Title": "Admin • Login",
			"Next":  r.URL.Query().Get("next"),
		})
	}
}

// POST /admin/login
func AdminLoginSubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		next := r.FormValue("next")

		res, _ := a.Identity.AdminLogin(r.Context(), identity.StoreFrom(r), username, r.FormValue("password"))
		if !res.OK {
			a.render(w, r, http.StatusUnauthorized, "admin/login.tmpl", map[string]any{
				"Title":    "Admin • Login",
				"Next":     next,
				"Username": username,
				"Flash":    &Flash{Kind: "error", Text: res.Message},
			})
			return
		}
		http.Redirect(w, r, safeNext(next, "/admin"), http.StatusSeeOther)
	}
}

// POST /admin/logout
func AdminLogout(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.Identity.Logout(r.Context(), identity.StoreFrom(r))
		http.Redirect(w, r, "/admin/login?ok=logged_out", http.StatusSeeOther)
	}
}
