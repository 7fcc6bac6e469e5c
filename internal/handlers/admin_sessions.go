package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lojf/quizdesk/internal/listing"
	"github.com/lojf/quizdesk/internal/models"
)

// GET /admin/sessions
func AdminSessions(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := filtersFrom(r)
		f.Session, f.Type = "", ""
		data := map[string]any{"Title": "Admin • Sessions", "Filters": f}

		sessions, err := a.backend(r).Sessions(r.Context())
		if err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to load sessions")
			if redirected {
				return
			}
			data["Error"] = msg
		}
		data["Sessions"] = listing.Sessions(sessions, f)
		a.render(w, r, http.StatusOK, "admin/sessions.tmpl", data)
	}
}

// parseSessionForm reads and checks the session form. Times are entered in
// the display zone.
func parseSessionForm(r *http.Request, loc *time.Location) (models.SessionInput, string) {
	in := models.SessionInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Teacher:     strings.TrimSpace(r.FormValue("teacher")),
		Description: strings.TrimSpace(r.FormValue("description")),
		IsActive:    r.FormValue("is_active") != "",
	}
	start, errS := parseInputTime(r.FormValue("start_time"), loc)
	end, errE := parseInputTime(r.FormValue("end_time"), loc)
	in.StartTime, in.EndTime = start, end

	switch {
	case in.Title == "":
		return in, "Title is required."
	case in.Teacher == "":
		return in, "Teacher is required."
	case errS != nil || errE != nil:
		return in, "Start and end time are required."
	case !end.After(start):
		return in, "End time must be after start time."
	}
	return in, ""
}

func (a *App) renderSessionForm(w http.ResponseWriter, r *http.Request, status, id int, form models.SessionInput, msg string) {
	data := map[string]any{"Title": "Admin • Session", "ID": id, "Form": form}
	if msg != "" {
		data["Flash"] = &Flash{Kind: "error", Text: msg}
	}
	a.render(w, r, status, "admin/session_form.tmpl", data)
}

// GET /admin/sessions/new
func AdminSessionNew(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := a.now().In(a.Views.Location()).Truncate(time.Hour).Add(time.Hour)
		form := models.SessionInput{StartTime: start, EndTime: start.Add(time.Hour), IsActive: true}
		a.renderSessionForm(w, r, http.StatusOK, 0, form, "")
	}
}

// POST /admin/sessions
func AdminSessionCreate(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in, msg := parseSessionForm(r, a.Views.Location())
		if msg != "" {
			a.renderSessionForm(w, r, http.StatusUnprocessableEntity, 0, in, msg)
			return
		}
		if _, err := a.backend(r).CreateSession(r.Context(), in); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to create session")
			if !redirected {
				a.renderSessionForm(w, r, http.StatusOK, 0, in, msg)
			}
			return
		}
		http.Redirect(w, r, "/admin/sessions?ok=created", http.StatusSeeOther)
	}
}

// GET /admin/sessions/{sessionID}/edit
func AdminSessionEdit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		s, err := a.backend(r).Session(r.Context(), id)
		if err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to load session"); !redirected {
				redirectWith(w, r, "/admin/sessions", "error", msg)
			}
			return
		}
		form := models.SessionInput{
			Title:       s.Title,
			Teacher:     s.Teacher,
			Description: s.Description,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
			IsActive:    s.IsActive,
		}
		a.renderSessionForm(w, r, http.StatusOK, id, form, "")
	}
}

// POST /admin/sessions/{sessionID}
func AdminSessionUpdate(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in, msg := parseSessionForm(r, a.Views.Location())
		if msg != "" {
			a.renderSessionForm(w, r, http.StatusUnprocessableEntity, id, in, msg)
			return
		}
		if _, err := a.backend(r).UpdateSession(r.Context(), id, in); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to update session")
			if !redirected {
				a.renderSessionForm(w, r, http.StatusOK, id, in, msg)
			}
			return
		}
		http.Redirect(w, r, "/admin/sessions?ok=saved", http.StatusSeeOther)
	}
}

// GET /admin/sessions/{sessionID}/attendees
func AdminSessionAttendees(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		be := a.backend(r)
		var (
			session   models.Session
			attendees []models.Attendee
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			session, err = be.Session(ctx, id)
			return err
		})
		g.Go(func() (err error) {
			attendees, err = be.SessionAttendees(ctx, id)
			return err
		})
		data := map[string]any{"Title": "Admin • Attendees"}
		if err := g.Wait(); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to load attendees")
			if redirected {
				return
			}
			data["Error"] = msg
			session.ID = id
		}
		data["Session"] = session
		data["Attendees"] = attendees
		a.render(w, r, http.StatusOK, "admin/attendees.tmpl", data)
	}
}

// GET /admin/sessions/{sessionID}/delete
func AdminSessionDeleteConfirm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		s, err := a.backend(r).Session(r.Context(), id)
		if err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to load session"); !redirected {
				redirectWith(w, r, "/admin/sessions", "error", msg)
			}
			return
		}
		a.confirmDelete(w, r, "session", s.Title, fmt.Sprintf("/admin/sessions/%d/delete", id), "/admin/sessions")
	}
}

// POST /admin/sessions/{sessionID}/delete
func AdminSessionDelete(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := a.backend(r).DeleteSession(r.Context(), id); err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to delete session"); !redirected {
				redirectWith(w, r, "/admin/sessions", "error", msg)
			}
			return
		}
		http.Redirect(w, r, "/admin/sessions?ok=deleted", http.StatusSeeOther)
	}
}
