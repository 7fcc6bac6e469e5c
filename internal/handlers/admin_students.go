package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lojf/quizdesk/internal/listing"
	"github.com/lojf/quizdesk/internal/models"
	"github.com/lojf/quizdesk/internal/services"
)

// GET /admin/students
func AdminStudents(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		be := a.backend(r)
		f := filtersFrom(r)
		f.Type = ""

		var (
			students []models.Attendee
			sessions []models.Session
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			students, err = be.Students(ctx, 0)
			return err
		})
		g.Go(func() (err error) {
			sessions, err = be.Sessions(ctx)
			return err
		})
		data := map[string]any{"Title": "Admin • Students", "Filters": f}
		if err := g.Wait(); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to load students")
			if redirected {
				return
			}
			data["Error"] = msg
		}
		data["Students"] = listing.Attendees(students, f)
		data["SessionOptions"] = sessions
		data["SessionTitles"] = sessionTitles(sessions)
		a.render(w, r, http.StatusOK, "admin/students.tmpl", data)
	}
}

// parseStudentForm builds the PATCH payload. Every field on the form is
// sent, so clearing "quiz submitted" reopens the quiz for the student.
func parseStudentForm(r *http.Request) (models.AttendeeUpdate, models.Attendee, string) {
	shown := models.Attendee{
		Name:         strings.TrimSpace(r.FormValue("name")),
		Email:        strings.TrimSpace(r.FormValue("email")),
		Phone:        strings.TrimSpace(r.FormValue("phone")),
		Place:        strings.TrimSpace(r.FormValue("place")),
		HasSubmitted: r.FormValue("has_submitted") != "",
	}
	if shown.Name == "" {
		return models.AttendeeUpdate{}, shown, "Name is required."
	}
	email, ok := services.NormEmail(shown.Email)
	if !ok {
		return models.AttendeeUpdate{}, shown, "Please enter a valid email address."
	}
	phone, msg := services.ValidatePhone(shown.Phone)
	if msg != "" {
		return models.AttendeeUpdate{}, shown, msg
	}
	shown.Email, shown.Phone = email, phone
	return models.AttendeeUpdate{
		Name:         &shown.Name,
		Email:        &shown.Email,
		Phone:        &shown.Phone,
		Place:        &shown.Place,
		HasSubmitted: &shown.HasSubmitted,
	}, shown, ""
}

func (a *App) renderStudentForm(w http.ResponseWriter, r *http.Request, status int, st models.Attendee, msg string) {
	data := map[string]any{"Title": "Admin • Student", "Student": st}
	if msg != "" {
		data["Flash"] = &Flash{Kind: "error", Text: msg}
	}
	a.render(w, r, status, "admin/student_form.tmpl", data)
}

// GET /admin/students/{studentID}/edit
func AdminStudentEdit(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "studentID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		st, err := a.backend(r).Student(r.Context(), id)
		if err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to load student"); !redirected {
				redirectWith(w, r, "/admin/students", "error", msg)
			}
			return
		}
		a.renderStudentForm(w, r, http.StatusOK, st, "")
	}
}

// POST /admin/students/{studentID}
func AdminStudentUpdate(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "studentID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		patch, shown, msg := parseStudentForm(r)
		shown.ID = id
		if msg != "" {
			a.renderStudentForm(w, r, http.StatusUnprocessableEntity, shown, msg)
			return
		}
		if _, err := a.backend(r).UpdateStudent(r.Context(), id, patch); err != nil {
			msg, redirected := a.adminFailed(w, r, err, "Failed to update student")
			if !redirected {
				a.renderStudentForm(w, r, http.StatusOK, shown, msg)
			}
			return
		}
		http.Redirect(w, r, "/admin/students?ok=saved", http.StatusSeeOther)
	}
}

// GET /admin/students/{studentID}/delete
func AdminStudentDeleteConfirm(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "studentID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		st, err := a.backend(r).Student(r.Context(), id)
		if err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to load student"); !redirected {
				redirectWith(w, r, "/admin/students", "error", msg)
			}
			return
		}
		a.confirmDelete(w, r, "student", st.Name, fmt.Sprintf("/admin/students/%d/delete", id), "/admin/students")
	}
}

// POST /admin/students/{studentID}/delete
func AdminStudentDelete(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "studentID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := a.backend(r).DeleteStudent(r.Context(), id); err != nil {
			if msg, redirected := a.adminFailed(w, r, err, "Failed to delete student"); !redirected {
				redirectWith(w, r, "/admin/students", "error", msg)
			}
			return
		}
		http.Redirect(w, r, "/admin/students?ok=deleted", http.StatusSeeOther)
	}
}
