package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lojf/quizdesk/internal/listing"
	"github.com/lojf/quizdesk/internal/models"
)

var questionTypes = []models.QuestionType{models.MultipleChoice, models.TextResponse}

// GET /admin/questions
func AdminQuestions(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		be := a.backend(r)
		f := filtersFrom(r)

		var (
			questions []models.Question
			sessions  []models.Session
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			questions, err = be.Questions(ctx, 0)
			return err
		})
		g.Go(func() (err error) {
			sessions, err = be.Sessions(ctx)
			return err
		})
		data := map[string]any{"Title": "Admin • Questions", "Filters": f, "Types": questionTypes}
		if err := g.Wait(); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to load questions")
			if redirected {
				return
			}
			data["Error"] = msg
		}
		data["Questions"] = listing.Questions(questions, f)
		data["SessionOptions"] = sessions
		data["SessionTitles"] = sessionTitles(sessions)
		a.render(w, r, http.StatusOK, "admin/questions.tmpl", data)
	}
}

// parseQuestionForm reads and checks the question form. Options and the
// correct answer are dropped for text questions.
func parseQuestionForm(r *http.Request) (models.Question, string) {
	q := models.Question{
		Text:          strings.TrimSpace(r.FormValue("text")),
		QuestionType:  models.QuestionType(r.FormValue("question_type")),
		Option1:       strings.TrimSpace(r.FormValue("option1")),
		Option2:       strings.TrimSpace(r.FormValue("option2")),
		Option3:       strings.TrimSpace(r.FormValue("option3")),
		Option4:       strings.TrimSpace(r.FormValue("option4")),
		CorrectOption: formInt(r, "correct_option"),
		ClassSession:  models.Ref{ID: formInt(r, "class_session")},
	}
	switch {
	case q.ClassSession.ID <= 0:
		return q, "Please select a session"
	case q.Text == "":
		return q, "Question text is required."
	case !q.QuestionType.Valid():
		return q, "Please choose a question type."
	}
	if q.QuestionType == models.TextResponse {
		q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectOption = "", "", "", "", 0
		return q, ""
	}
	if q.Option1 == "" || q.Option2 == "" || q.CorrectOption == 0 {
		return q, "Please provide at least 2 options and select the correct answer"
	}
	valid := false
	for _, o := range q.Options() {
		if o.Index == q.CorrectOption {
			valid = true
		}
	}
	if !valid {
		return q, "The correct answer must be one of the filled-in options."
	}
	return q, ""
}

func (a *App) renderQuestionForm(w http.ResponseWriter, r *http.Request, status, id int, form models.Question, msg string) {
	data := map[string]any{"Title": "Admin • Question", "ID": id, "Form": form, "Types": questionTypes}
	sessions, err := a.backend(r).Sessions(r.Context())
	if err != nil && msg == "" {
		msg = "Failed to load sessions"
	}
	data["SessionOptions"] = sessions
	if msg != "" {
		data["Flash"] = &Flash{Kind: "error", Text: msg}
	}
	a.render(w, r, status, "admin/question_form.tmpl", data)
}

// GET /admin/questions/new?session=
func AdminQuestionNew(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := models.Question{QuestionType: models.MultipleChoice}
		form.ClassSession.ID, _ = strconv.Atoi(r.URL.Query().Get("session"))
		a.renderQuestionForm(w, r, http.StatusOK, 0, form, "")
	}
}

// POST /admin/questions
func AdminQuestionCreate(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q, msg := parseQuestionForm(r)
		if msg != "" {
			a.renderQuestionForm(w, r, http.StatusUnprocessableEntity, 0, q, msg)
			return
		}
		if _, err := a.backend(r).CreateQuestion(r.Context(), q); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to create question")
			if !redirected {
				a.renderQuestionForm(w, r, http.StatusOK, 0, q, msg)
			}
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/admin/questions?session=%d&ok=created", q.ClassSession.ID), http.StatusSeeOther)
	}
}

func (a *App) findQuestion(r *http.Request, id int) (models.Question, bool, error) {
	all, err := a.backend(r).Questions(r.Context(), 0)
	if err != nil {
		return models.Question{}, false, err
	}
	for _, q := range all {
		if q.ID == id {
			return q, true, nil
		}
	}
	return models.Question{}, false, nil
}

// GET /admin/questions/{questionID}/edit
func AdminQuestionEdit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "questionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		q, found, err := a.findQuestion(r, id)
		switch {
		case err != nil:
			if msg, redirected := a.adminFailed(w, r, err, "Failed to load question"); !redirected {
				redirectWith(w, r, "/admin/questions", "error", msg)
			}
		case !found:
			redirectWith(w, r, "/admin/questions", "error", "not_found")
		default:
			a.renderQuestionForm(w, r, http.StatusOK, id, q, "")
		}
	}
}

// POST /admin/questions/{questionID}
func AdminQuestionUpdate(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "questionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q, msg := parseQuestionForm(r)
		if msg != "" {
			a.renderQuestionForm(w, r, http.StatusUnprocessableEntity, id, q, msg)
			return
		}
		if _, err := a.backend(r).UpdateQuestion(r.Context(), id, q); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to update question")
			if !redirected {
				a.renderQuestionForm(w, r, http.StatusOK, id, q, msg)
			}
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/admin/questions?session=%d&ok=saved", q.ClassSession.ID), http.StatusSeeOther)
	}
}

// GET /admin/questions/{questionID}/delete
func AdminQuestionDeleteConfirm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "questionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		q, found, err := a.findQuestion(r, id)
		switch {
		case err != nil:
			if msg, redirected := a.adminFailed(w, r, err, "Failed to load question"); !redirected {
				redirectWith(w, r, "/admin/questions", "error", msg)
			}
		case !found:
			redirectWith(w, r, "/admin/questions", "error", "not_found")
		default:
			a.confirmDelete(w, r, "question", q.Text, fmt.Sprintf("/admin/questions/%d/delete", id), "/admin/questions")
		}
	}
}

// POST /admin/questions/{questionID}/delete
func AdminQuestionDelete(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "questionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := a.backend(r).DeleteQuestion(r.Context(), id); err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to delete question"); !redirected {
				redirectWith(w, r, "/admin/questions", "error", msg)
			}
			return
		}
		http.Redirect(w, r, "/admin/questions?ok=deleted", http.StatusSeeOther)
	}
}
