package handlers

import (
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/lojf/quizdesk/internal/listing"
	"github.com/lojf/quizdesk/internal/models"
)

var feedbackTypes = []models.FeedbackType{models.FeedbackQuiz, models.FeedbackReview}

// GET /admin/feedback
func AdminFeedback(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		be := a.backend(r)
		f := filtersFrom(r)

		var (
			items    []models.Feedback
			sessions []models.Session
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			items, err = be.FeedbackList(ctx)
			return err
		})
		g.Go(func() (err error) {
			sessions, err = be.Sessions(ctx)
			return err
		})
		data := map[string]any{"Title": "Admin • Feedback", "Filters": f, "Types": feedbackTypes}
		if err := g.Wait(); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to load feedback")
			if redirected {
				return
			}
			data["Error"] = msg
		}
		titles := sessionTitles(sessions)
		// Fill in titles the backend left out so search can match them.
		for i := range items {
			if items[i].SessionTitle == "" {
				items[i].SessionTitle = titles[items[i].Attendee.ClassSession.ID]
			}
		}
		data["Feedback"] = listing.Feedback(items, f)
		data["SessionOptions"] = sessions
		data["SessionTitles"] = titles
		a.render(w, r, http.StatusOK, "admin/feedback.tmpl", data)
	}
}

// GET /admin/feedback/{feedbackID}/delete
func AdminFeedbackDeleteConfirm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "feedbackID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		fb, err := a.backend(r).Feedback(r.Context(), id)
		if err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to load feedback"); !redirected {
				redirectWith(w, r, "/admin/feedback", "error", msg)
			}
			return
		}
		name := "feedback"
		if fb.Attendee.Name != "" {
			name = "feedback from " + fb.Attendee.Name
		}
		a.confirmDelete(w, r, "feedback", name, fmt.Sprintf("/admin/feedback/%d/delete", id), "/admin/feedback")
	}
}

// POST /admin/feedback/{feedbackID}/delete
func AdminFeedbackDelete(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "feedbackID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := a.backend(r).DeleteFeedback(r.Context(), id); err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to delete feedback"); !redirected {
				redirectWith(w, r, "/admin/feedback", "error", msg)
			}
			return
		}
		http.Redirect(w, r, "/admin/feedback?ok=deleted", http.StatusSeeOther)
	}
}
