package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/lifecycle"
	"github.com/lojf/quizdesk/internal/models"
	"github.com/lojf/quizdesk/internal/quiz"
)

// GET /student/sessions/{sessionID}/quiz
//
// Every load starts a new attempt with a fresh countdown.
func QuizStart(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			a.renderError(w, r, http.StatusNotFound, errText["invalid_session"], "/student/dashboard")
			return
		}
		who, _ := identity.StoreFrom(r).Attendee()
		home := fmt.Sprintf("/student/sessions/%d", id)

		s, err := a.Client.Session(r.Context(), id)
		if err != nil {
			a.renderError(w, r, statusFor(err), api.UserMessage(err, "Failed to load session details."), home)
			return
		}
		if phaseOf(s, a.now()) != lifecycle.Active {
			http.Redirect(w, r, home+"?error=session_closed", http.StatusSeeOther)
			return
		}
		if done, err := a.Client.CompletedSessions(r.Context(), who.ID); err == nil {
			for _, c := range done {
				if c == id {
					http.Redirect(w, r, home+"?error=already_done", http.StatusSeeOther)
					return
				}
			}
		}

		attempt, err := a.Quizzes.Start(r.Context(), who, s)
		if err != nil {
			a.Logger.Warn().Err(err).Int("session", id).Int("attendee", who.ID).Msg("Quiz load failed")
		}
		a.renderQuiz(w, r, http.StatusOK, attempt, "", nil)
	}
}

func (a *App) renderQuiz(w http.ResponseWriter, r *http.Request, status int, attempt *quiz.Attempt, feedback string, flash *Flash) {
	data := map[string]any{
		"Title":     attempt.Session.Title,
		"Session":   attempt.Session,
		"AttemptID": attempt.ID,
		"Attempt":   attempt.Snapshot(),
		"Questions": attempt.Questions(),
		"Answers":   attempt.Answers(),
		"Feedback":  feedback,
	}
	if flash != nil {
		data["Flash"] = flash
	}
	a.render(w, r, status, "quiz.tmpl", data)
}

// POST /student/quiz/{attemptID}
func QuizSubmit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, _ := identity.StoreFrom(r).Attendee()
		attempt, ok := a.Quizzes.Get(chi.URLParam(r, "attemptID"), who.ID)
		if !ok {
			http.Redirect(w, r, "/student/dashboard?error=attempt_missing", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// The posted form is the latest word on every answer.
		for _, q := range attempt.Questions() {
			raw := strings.TrimSpace(r.FormValue("q_" + strconv.Itoa(q.ID)))
			ans := quiz.Answer{Text: raw}
			if q.QuestionType == models.MultipleChoice {
				n, _ := strconv.Atoi(raw)
				ans = quiz.Answer{Option: n}
			}
			if err := attempt.Answer(q.ID, ans); err != nil && !errors.Is(err, quiz.ErrNotInProgress) {
				a.Logger.Debug().Err(err).Int("question", q.ID).Msg("Ignoring invalid answer")
			}
		}
		feedback := r.FormValue("feedback")
		attempt.SetFeedback(feedback)

		_, err := attempt.Submit(r.Context(), quiz.Manual)
		switch {
		case err == nil:
			http.Redirect(w, r, "/student/thank-you?attempt="+attempt.ID, http.StatusSeeOther)
		case errors.Is(err, quiz.ErrNoAnswers):
			a.renderQuiz(w, r, http.StatusUnprocessableEntity, attempt, feedback, &Flash{Kind: "error", Text: err.Error()})
		case errors.Is(err, quiz.ErrNotInProgress):
			if _, done := attempt.Summary(); done {
				http.Redirect(w, r, "/student/thank-you?attempt="+attempt.ID, http.StatusSeeOther)
				return
			}
			a.renderQuiz(w, r, http.StatusConflict, attempt, feedback, &Flash{Kind: "error", Text: "Your quiz is already being submitted."})
		default:
			// The attempt keeps the message; the page shows it with the answers intact.
			a.renderQuiz(w, r, http.StatusOK, attempt, feedback, nil)
		}
	}
}

// GET /student/thank-you?attempt=
func ThankYou(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, _ := identity.StoreFrom(r).Attendee()
		sum := quiz.Summary{AttendeeName: who.Name}
		if attempt, ok := a.Quizzes.Get(r.URL.Query().Get("attempt"), who.ID); ok {
			if s, done := attempt.Summary(); done {
				sum = s
			}
		}
		if sum.AttendeeName == "" {
			sum.AttendeeName = "Student"
		}
		a.render(w, r, http.StatusOK, "thank_you.tmpl", map[string]any{
			"Title":   "Thank you",
			"Summary": sum,
		})
	}
}
