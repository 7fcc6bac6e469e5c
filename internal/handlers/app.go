package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/quiz"
	"github.com/lojf/quizdesk/internal/services"
	"github.com/lojf/quizdesk/internal/views"
)

// App is what every handler closes over.
type App struct {
	Views     *views.Views
	Client    *api.Client
	Identity  *identity.Service
	Join      *services.Join
	Quizzes   *quiz.Registry
	Logger    zerolog.Logger
	PublicURL string
	Now       func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// backend is the client acting for the visitor: admin calls carry the
// visitor's tokens and may refresh them.
func (a *App) backend(r *http.Request) *api.Client {
	return a.Client.WithTokens(identity.StoreFrom(r))
}

// render adds the layout keys every page expects and writes the page.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Flash"]; !ok {
		if f := MakeFlash(r, "", ""); f != nil {
			data["Flash"] = f
		}
	}
	if auth := identity.AuthFrom(r); auth.Authenticated() {
		data["Profile"] = auth.Profile
		if auth.IsAdmin && strings.HasPrefix(r.URL.Path, "/admin") {
			data["AdminNav"] = true
		}
	}
	if who, ok := identity.StoreFrom(r).Attendee(); ok {
		data["Student"] = &who
	}
	if err := a.Views.Render(w, status, page, data); err != nil {
		a.Logger.Error().Err(err).Str("page", page).Msg("Render failed")
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (a *App) renderError(w http.ResponseWriter, r *http.Request, status int, msg, back string) {
	a.render(w, r, status, "error.tmpl", map[string]any{
		"Title":   "Error",
		"Message": msg,
		"Back":    back,
	})
}

// adminFailed handles a backend error on an admin page. An expired session
// goes back to the login; anything else becomes the page's message.
func (a *App) adminFailed(w http.ResponseWriter, r *http.Request, err error, fallback string) (string, bool) {
	if errors.Is(err, api.ErrSessionExpired) {
		http.Redirect(w, r, "/admin/login?error=expired&next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return "", true
	}
	a.Logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Backend call failed")
	return api.UserMessage(err, fallback), false
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(name)))
	if err != nil {
		return 0
	}
	return n
}

// redirectWith appends a flash key to target.
func redirectWith(w http.ResponseWriter, r *http.Request, target, kind, value string) {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	http.Redirect(w, r, target+sep+kind+"="+url.QueryEscape(value), http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	return next
}
