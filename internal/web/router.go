package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/config"
	"github.com/lojf/quizdesk/internal/handlers"
	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/metrics"
)

func Router(a *handlers.App, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(NewCORS(cfg.CORS))
	r.Use(identity.Attach(identity.CookieOptions{Secure: cfg.Cookies.Secure, MaxAge: cfg.Cookies.MaxAge}))

	r.Get("/healthz", handlers.Health)
	r.Handle("/metrics", metrics.Handler())

	// Live sockets outlast any request timeout.
	r.Group(func(lr chi.Router) {
		lr.Use(identity.RequireAttendee)
		lr.Get("/student/sessions/{sessionID}/live", handlers.SessionLive(a))
		lr.Get("/student/quiz/{attemptID}/live", handlers.QuizLive(a))
	})

	r.Group(func(pr chi.Router) {
		if cfg.Server.RequestTimeout > 0 {
			pr.Use(middleware.Timeout(cfg.Server.RequestTimeout))
		}

		// Public pages
		pr.Get("/", handlers.Home(a))
		pr.Get("/my", handlers.MyRegistrations(a))

		// --- Student join flow: code -> verify -> register or log in ---
		pr.Get("/sessions/{sessionID}/join", handlers.JoinForm(a))
		pr.Post("/sessions/{sessionID}/join", handlers.JoinSubmit(a))
		pr.Get("/verify", handlers.VerifyForm(a))
		pr.Post("/verify", handlers.VerifySubmit(a))
		pr.Get("/register", handlers.RegisterForm(a))
		pr.Post("/register", handlers.RegisterSubmit(a))
		pr.Get("/student/login", handlers.StudentLoginForm(a))
		pr.Post("/student/login", handlers.StudentLoginSubmit(a))
		pr.Post("/student/logout", handlers.StudentLogout(a))

		// Accounts
		pr.Get("/login", handlers.LoginForm(a))
		pr.Post("/login", handlers.LoginSubmit(a))
		pr.Post("/logout", handlers.Logout(a))
		pr.Get("/account/register", handlers.AccountRegisterForm(a))
		pr.Post("/account/register", handlers.AccountRegisterSubmit(a))
		pr.With(a.Identity.RequireAuth).Get("/account", handlers.AccountHome(a))

		// Student pages
		pr.Group(func(sr chi.Router) {
			sr.Use(identity.RequireAttendee)
			sr.Get("/student/dashboard", handlers.StudentDashboard(a))
			sr.Get("/student/sessions/{sessionID}", handlers.SessionHome(a))
			sr.Get("/student/sessions/{sessionID}/quiz", handlers.QuizStart(a))
			sr.Post("/student/quiz/{attemptID}", handlers.QuizSubmit(a))
			sr.Get("/student/thank-you", handlers.ThankYou(a))
			sr.Get("/student/feedback", handlers.FeedbackForm(a))
			sr.Post("/student/feedback", handlers.FeedbackSubmit(a))
		})

		// QR image
		pr.With(a.Identity.RequireAdmin).Get("/qr/sessions/{sessionID}.png", handlers.SessionQR(a))

		// --- Admin routes (with login + guard) ---
		pr.Route("/admin", func(ar chi.Router) {
			ar.Get("/login", handlers.AdminLoginForm(a))
			ar.Post("/login", handlers.AdminLoginSubmit(a))
			ar.Post("/logout", handlers.AdminLogout(a))

			ar.Group(func(ag chi.Router) {
				ag.Use(a.Identity.RequireAdmin)

				ag.Get("/", handlers.AdminDashboard(a))

				// Sessions
				ag.Get("/sessions", handlers.AdminSessions(a))
				ag.Get("/sessions/new", handlers.AdminSessionNew(a))
				ag.Post("/sessions", handlers.AdminSessionCreate(a))
				ag.Get("/sessions/{sessionID}/edit", handlers.AdminSessionEdit(a))
				ag.Post("/sessions/{sessionID}", handlers.AdminSessionUpdate(a))
				ag.Get("/sessions/{sessionID}/attendees", handlers.AdminSessionAttendees(a))
				ag.Get("/sessions/{sessionID}/delete", handlers.AdminSessionDeleteConfirm(a))
				ag.Post("/sessions/{sessionID}/delete", handlers.AdminSessionDelete(a))

				// Students
				ag.Get("/students", handlers.AdminStudents(a))
				ag.Get("/students/{studentID}/edit", handlers.AdminStudentEdit(a))
				ag.Post("/students/{studentID}", handlers.AdminStudentUpdate(a))
				ag.Get("/students/{studentID}/delete", handlers.AdminStudentDeleteConfirm(a))
				ag.Post("/students/{studentID}/delete", handlers.AdminStudentDelete(a))

				// Questions
				ag.Get("/questions", handlers.AdminQuestions(a))
				ag.Get("/questions/new", handlers.AdminQuestionNew(a))
				ag.Post("/questions", handlers.AdminQuestionCreate(a))
				ag.Get("/questions/{questionID}/edit", handlers.AdminQuestionEdit(a))
				ag.Post("/questions/{questionID}", handlers.AdminQuestionUpdate(a))
				ag.Get("/questions/{questionID}/delete", handlers.AdminQuestionDeleteConfirm(a))
				ag.Post("/questions/{questionID}/delete", handlers.AdminQuestionDelete(a))

				// Feedback
				ag.Get("/feedback", handlers.AdminFeedback(a))
				ag.Get("/feedback/{feedbackID}/delete", handlers.AdminFeedbackDeleteConfirm(a))
				ag.Post("/feedback/{feedbackID}/delete", handlers.AdminFeedbackDelete(a))
			})
		})
	})

	return r
}
