package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/lifecycle"
	"github.com/lojf/quizdesk/internal/models"
	"github.com/lojf/quizdesk/internal/services"
)

// --- Student self-service: dashboard, session home, feedback, "My registrations" ---

// GET /student/dashboard
func StudentDashboard(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, _ := identity.StoreFrom(r).Attendee()

		var (
			sessions  []models.Session
			completed []int
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			sessions, err = a.Client.Sessions(ctx)
			return err
		})
		g.Go(func() (err error) {
			completed, err = a.Client.CompletedSessions(ctx, who.ID)
			return err
		})

		data := map[string]any{"Title": "My dashboard", "Student": &who}
		if err := g.Wait(); err != nil {
			a.Logger.Warn().Err(err).Int("attendee", who.ID).Msg("Dashboard fetch failed")
			data["Error"] = api.UserMessage(err, "Failed to load your sessions.")
			a.render(w, r, http.StatusOK, "student_dashboard.tmpl", data)
			return
		}

		done := make(map[int]bool, len(completed))
		for _, id := range completed {
			done[id] = true
		}
		now := a.now()
		var doneList, available []models.Session
		for _, s := range sessions {
			switch {
			case done[s.ID]:
				doneList = append(doneList, s)
			case phaseOf(s, now) != lifecycle.Expired:
				available = append(available, s)
			}
		}
		data["Completed"] = doneList
		data["Available"] = available
		a.render(w, r, http.StatusOK, "student_dashboard.tmpl", data)
	}
}

// GET /student/sessions/{sessionID}
func SessionHome(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			a.renderError(w, r, http.StatusNotFound, errText["invalid_session"], "/student/dashboard")
			return
		}
		who, _ := identity.StoreFrom(r).Attendee()

		var (
			session   models.Session
			progress  models.QuizProgress
			completed []int
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			session, err = a.Client.Session(ctx, id)
			return err
		})
		g.Go(func() (err error) {
			progress, err = a.Client.QuizProgress(ctx, who.ID, id)
			return err
		})
		g.Go(func() (err error) {
			completed, err = a.Client.CompletedSessions(ctx, who.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			if api.StatusOf(err) == http.StatusNotFound {
				a.renderError(w, r, http.StatusNotFound, errText["invalid_session"], "/student/dashboard")
				return
			}
			a.Logger.Warn().Err(err).Int("session", id).Msg("Session home fetch failed")
			a.render(w, r, http.StatusOK, "session_home.tmpl", map[string]any{
				"Title":   "Session",
				"Session": models.Session{ID: id},
				"Error":   api.UserMessage(err, "Failed to load session details. Please try again."),
			})
			return
		}

		isDone := false
		for _, c := range completed {
			if c == id {
				isDone = true
				break
			}
		}
		a.render(w, r, http.StatusOK, "session_home.tmpl", map[string]any{
			"Title":     session.Title,
			"Session":   session,
			"Progress":  progress,
			"Completed": isDone,
		})
	}
}

// GET /student/feedback
func FeedbackForm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.render(w, r, http.StatusOK, "feedback.tmpl", map[string]any{"Title": "Feedback"})
	}
}

// POST /student/feedback
func FeedbackSubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		who, _ := identity.StoreFrom(r).Attendee()
		content := strings.TrimSpace(r.FormValue("content"))
		fail := func(status int, msg string) {
			a.render(w, r, status, "feedback.tmpl", map[string]any{
				"Title":   "Feedback",
				"Content": content,
				"Flash":   &Flash{Kind: "error", Text: msg},
			})
		}
		if content == "" {
			fail(http.StatusUnprocessableEntity, "Please write something before sending.")
			return
		}
		in := models.FeedbackInput{Attendee: who.ID, Content: content, FeedbackType: models.FeedbackReview}
		if err := a.Client.SubmitFeedback(r.Context(), in); err != nil {
			fail(http.StatusOK, api.UserMessage(err, "Failed to send feedback. Please try again."))
			return
		}
		http.Redirect(w, r, "/student/dashboard?ok=feedback_sent", http.StatusSeeOther)
	}
}

// GET /my?email=
func MyRegistrations(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("email")
		if raw == "" {
			if who, ok := identity.StoreFrom(r).Attendee(); ok {
				raw = who.Email
			}
		}
		data := map[string]any{"Title": "My registrations", "Email": raw}
		if raw == "" {
			a.render(w, r, http.StatusOK, "my.tmpl", data)
			return
		}
		email, ok := services.NormEmail(raw)
		if !ok {
			data["Flash"] = &Flash{Kind: "error", Text: "Please enter a valid email address."}
			a.render(w, r, http.StatusOK, "my.tmpl", data)
			return
		}
		regs, err := a.Client.MyRegistrations(r.Context(), email)
		if err != nil {
			data["Error"] = api.UserMessage(err, "Failed to load your registrations.")
		} else {
			data["Searched"] = true
			data["Registrations"] = regs
		}
		a.render(w, r, http.StatusOK, "my.tmpl", data)
	}
}
