package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/cache"
	"github.com/lojf/quizdesk/internal/config"
	"github.com/lojf/quizdesk/internal/db"
	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/models"
	"github.com/lojf/quizdesk/internal/quiz"
	"github.com/lojf/quizdesk/internal/services"
	"github.com/lojf/quizdesk/internal/views"
)

var now = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

// fakeAPI is just enough of the REST backend for the student pages.
type fakeAPI struct {
	mu        sync.Mutex
	sessions  map[int]models.Session
	active    []int
	upcoming  []int
	questions []models.Question
	completed []int
	attendees []models.Attendee
	calls     []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		sessions: map[int]models.Session{
			3: {ID: 3, Title: "Go 101", Teacher: "Ana", SessionCode: "ABC12345", StartTime: now.Add(-10 * time.Minute), EndTime: now.Add(50 * time.Minute)},
			4: {ID: 4, Title: "Rust 201", Teacher: "Raj", SessionCode: "XYZ98765", StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour)},
			5: {ID: 5, Title: "Old news", Teacher: "Bo", StartTime: now.Add(-3 * time.Hour), EndTime: now.Add(-2 * time.Hour)},
		},
		active:   []int{3},
		upcoming: []int{4, 3},
		questions: []models.Question{
			{ID: 11, Text: "Pick one", QuestionType: models.MultipleChoice, Option1: "a", Option2: "b", ClassSession: models.Ref{ID: 3}},
			{ID: 12, Text: "Explain", QuestionType: models.TextResponse, ClassSession: models.Ref{ID: 3}},
		},
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) list(ids []int) []models.Session {
	out := []models.Session{}
	for _, id := range ids {
		out = append(out, f.sessions[id])
	}
	return out
}

func (f *fakeAPI) handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/sessions/active_sessions/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.list(f.active))
	})
	r.Get("/sessions/upcoming_sessions/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.list(f.upcoming))
	})
	r.Get("/sessions/{id}/", func(w http.ResponseWriter, r *http.Request) {
		id, _ := pathID(r, "id")
		s, ok := f.sessions[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		writeJSON(w, http.StatusOK, s)
	})
	r.Get("/questions/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.questions)
	})
	r.Post("/responses/", func(w http.ResponseWriter, r *http.Request) {
		var in models.ResponseInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.record(fmt.Sprintf("response:%d", in.Question))
		writeJSON(w, http.StatusCreated, models.Response{ID: 1, Question: models.Ref{ID: in.Question}})
	})
	r.Post("/feedback/", func(w http.ResponseWriter, r *http.Request) {
		f.record("feedback")
		writeJSON(w, http.StatusCreated, map[string]any{})
	})
	r.Post("/students/{id}/submit_quiz/", func(w http.ResponseWriter, r *http.Request) {
		f.record("submit")
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	r.Get("/student/{id}/completed-sessions/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.CompletedSessions{CompletedSessionIDs: f.completed})
	})
	r.Post("/students/", func(w http.ResponseWriter, r *http.Request) {
		var in models.StudentRegistration
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.record("register")
		for _, s := range f.sessions {
			if s.SessionCode != "" && s.SessionCode == in.SessionCode {
				f.mu.Lock()
				a := models.Attendee{
					ID:           100 + len(f.attendees),
					Name:         in.Name,
					Email:        in.Email,
					Phone:        in.Phone,
					ClassSession: models.Ref{ID: s.ID},
					SessionTitle: s.Title,
				}
				f.attendees = append(f.attendees, a)
				f.mu.Unlock()
				writeJSON(w, http.StatusCreated, a)
				return
			}
		}
		writeJSON(w, http.StatusBadRequest, map[string][]string{"session_code": {"Invalid session code."}})
	})
	r.Get("/attendees/my_registrations/", func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		out := []models.Attendee{}
		f.mu.Lock()
		for _, a := range f.attendees {
			if a.Email == email {
				out = append(out, a)
			}
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newApp(t *testing.T, f *fakeAPI, quizCfg config.QuizConfig) *App {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	client := api.NewClient(config.BackendConfig{URL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop())
	id := identity.NewService(client, cache.NewMemory(time.Minute), zerolog.Nop())
	gdb, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	return &App{
		Views:     views.Must(views.New(time.UTC)),
		Client:    client,
		Identity:  id,
		Join:      services.NewJoin(client, id, zerolog.Nop()),
		Quizzes:   quiz.NewRegistry(quizCfg, client, quiz.NewLedger(gdb), zerolog.Nop()),
		Logger:    zerolog.Nop(),
		PublicURL: "https://quiz.example.com/",
		Now:       func() time.Time { return now },
	}
}

var defaultQuiz = config.QuizConfig{Duration: 5 * time.Minute, TickInterval: time.Second, AttemptTTL: time.Hour}

var jane = models.StudentIdentity{ID: 7, Email: "jane@example.com", Name: "Jane"}

// studentRouter mounts the student pages with jane already signed in.
func studentRouter(a *App) http.Handler {
	r := chi.NewRouter()
	r.Use(identity.Attach(identity.CookieOptions{}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity.StoreFrom(r).SetAttendee(jane)
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/", Home(a))
	r.Get("/student/sessions/{sessionID}/quiz", QuizStart(a))
	r.Post("/student/quiz/{attemptID}", QuizSubmit(a))
	r.Get("/student/quiz/{attemptID}/live", QuizLive(a))
	r.Get("/student/sessions/{sessionID}/live", SessionLive(a))
	r.Get("/student/thank-you", ThankYou(a))
	return r
}

func do(t *testing.T, h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var attemptRE = regexp.MustCompile(`action="/student/quiz/([0-9a-f-]+)"`)

func startQuiz(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/student/sessions/3/quiz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := attemptRE.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2, "quiz form not rendered")
	return m[1]
}

func TestHome_MergesListsAndPhasesByClock(t *testing.T) {
	f := newFakeAPI()
	h := studentRouter(newApp(t, f, defaultQuiz))

	rec := do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Equal(t, 1, strings.Count(body, "<h3>Go 101</h3>"))
	require.Contains(t, body, "<h3>Rust 201</h3>")
	require.Less(t, strings.Index(body, "Go 101"), strings.Index(body, "Coming up"))
	require.Greater(t, strings.Index(body, "Rust 201"), strings.Index(body, "Coming up"))
}

func TestQuizStart_RejectsClosedAndCompletedSessions(t *testing.T) {
	f := newFakeAPI()
	f.completed = []int{3}
	h := studentRouter(newApp(t, f, defaultQuiz))

	rec := do(t, h, http.MethodGet, "/student/sessions/4/quiz", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/student/sessions/4?error=session_closed", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/student/sessions/5/quiz", nil)
	require.Equal(t, "/student/sessions/5?error=session_closed", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/student/sessions/3/quiz", nil)
	require.Equal(t, "/student/sessions/3?error=already_done", rec.Header().Get("Location"))
}

func TestQuizStart_EachLoadIsANewAttempt(t *testing.T) {
	h := studentRouter(newApp(t, newFakeAPI(), defaultQuiz))
	first := startQuiz(t, h)
	second := startQuiz(t, h)
	require.NotEqual(t, first, second)
}

func TestQuizSubmit_WritesAnswersThenMarksSubmitted(t *testing.T) {
	f := newFakeAPI()
	h := studentRouter(newApp(t, f, defaultQuiz))
	id := startQuiz(t, h)

	rec := do(t, h, http.MethodPost, "/student/quiz/"+id, url.Values{
		"q_11":     {"2"},
		"q_12":     {"  goroutines  "},
		"feedback": {"Nice pace"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/student/thank-you?attempt="+id, rec.Header().Get("Location"))
	require.Equal(t, []string{"response:11", "response:12", "feedback", "submit"}, f.Calls())

	rec = do(t, h, http.MethodGet, "/student/thank-you?attempt="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Thank you, Jane!")
	require.Contains(t, rec.Body.String(), "you answered 2 of 2 questions")
}

func TestQuizSubmit_NeedsAnAnswer(t *testing.T) {
	f := newFakeAPI()
	h := studentRouter(newApp(t, f, defaultQuiz))
	id := startQuiz(t, h)

	rec := do(t, h, http.MethodPost, "/student/quiz/"+id, url.Values{"q_12": {"   "}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), quiz.ErrNoAnswers.Error())
	require.Empty(t, f.Calls())
}

func TestQuizSubmit_UnknownAttempt(t *testing.T) {
	h := studentRouter(newApp(t, newFakeAPI(), defaultQuiz))
	rec := do(t, h, http.MethodPost, "/student/quiz/nope", url.Values{"q_11": {"1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/student/dashboard?error=attempt_missing", rec.Header().Get("Location"))
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestQuizLive_CountsDownAndAutoSubmits(t *testing.T) {
	f := newFakeAPI()
	cfg := config.QuizConfig{Duration: 3 * time.Second, TickInterval: 10 * time.Millisecond, AttemptTTL: time.Hour}
	a := newApp(t, f, cfg)
	h := studentRouter(a)
	id := startQuiz(t, h)

	srv := httptest.NewServer(h)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/student/quiz/"+id+"/live"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "answer", "question": 11, "option": 1}))

	var seen []int
	var last quiz.Snapshot
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var s quiz.Snapshot
		if err := conn.ReadJSON(&s); err != nil {
			break
		}
		seen = append(seen, s.Seconds)
		last = s
		if s.State == quiz.StateDone {
			break
		}
	}
	require.Equal(t, 3, seen[0])
	require.Equal(t, quiz.StateDone, last.State)
	require.True(t, last.AutoSubmitted)
	require.Equal(t, []string{"response:11", "submit"}, f.Calls())
}

func TestQuizLive_OneSocketPerAttempt(t *testing.T) {
	h := studentRouter(newApp(t, newFakeAPI(), defaultQuiz))
	id := startQuiz(t, h)

	srv := httptest.NewServer(h)
	defer srv.Close()
	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/student/quiz/"+id+"/live"), nil)
	require.NoError(t, err)
	defer first.Close()
	var s quiz.Snapshot
	require.NoError(t, first.ReadJSON(&s))
	require.Equal(t, "5:00", s.Clock)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/student/quiz/"+id+"/live"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSessionLive_StreamsPhase(t *testing.T) {
	h := studentRouter(newApp(t, newFakeAPI(), defaultQuiz))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/student/sessions/4/live"), nil)
	require.NoError(t, err)
	defer conn.Close()
	var msg sessionTick
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "waiting", string(msg.Phase))
	require.Equal(t, "1h 0m", msg.Display)
	require.Equal(t, 3600, msg.Remaining)
}

func TestParseQuestionForm(t *testing.T) {
	parse := func(v url.Values) (models.Question, string) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(v.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return parseQuestionForm(r)
	}

	_, msg := parse(url.Values{"text": {"Q"}, "question_type": {"text_response"}})
	require.Equal(t, "Please select a session", msg)

	q, msg := parse(url.Values{"class_session": {"3"}, "text": {"Q"}, "question_type": {"text_response"}, "option1": {"x"}, "correct_option": {"1"}})
	require.Empty(t, msg)
	require.Empty(t, q.Option1)
	require.Zero(t, q.CorrectOption)

	_, msg = parse(url.Values{"class_session": {"3"}, "text": {"Q"}, "question_type": {"multiple_choice"}, "option1": {"x"}, "correct_option": {"1"}})
	require.Equal(t, "Please provide at least 2 options and select the correct answer", msg)

	_, msg = parse(url.Values{"class_session": {"3"}, "text": {"Q"}, "question_type": {"multiple_choice"}, "option1": {"x"}, "option2": {"y"}, "correct_option": {"4"}})
	require.Equal(t, "The correct answer must be one of the filled-in options.", msg)

	q, msg = parse(url.Values{"class_session": {"3"}, "text": {"Q"}, "question_type": {"multiple_choice"}, "option1": {"x"}, "option2": {"y"}, "correct_option": {"2"}})
	require.Empty(t, msg)
	require.Equal(t, 2, q.CorrectOption)
}

func TestParseSessionForm(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	parse := func(v url.Values) (models.SessionInput, string) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(v.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return parseSessionForm(r, loc)
	}
	base := url.Values{"title": {"Go"}, "teacher": {"Ana"}, "start_time": {"2025-03-10T10:00"}, "end_time": {"2025-03-10T11:30"}}

	in, msg := parse(base)
	require.Empty(t, msg)
	require.Equal(t, time.Date(2025, 3, 10, 4, 30, 0, 0, time.UTC), in.StartTime.UTC())
	require.False(t, in.IsActive)

	bad := url.Values{}
	for k, v := range base {
		bad[k] = v
	}
	bad.Set("end_time", "2025-03-10T09:00")
	_, msg = parse(bad)
	require.Equal(t, "End time must be after start time.", msg)

	bad.Set("teacher", " ")
	_, msg = parse(bad)
	require.Equal(t, "Teacher is required.", msg)
}

func TestJoinLink(t *testing.T) {
	require.Equal(t, "https://quiz.example.com/verify?code=ABC12345&session=3",
		joinLink("https://quiz.example.com/", "ignored", 3, "ABC12345"))
	require.Equal(t, "http://localhost:8080/verify?code=X&session=9", joinLink("", "localhost:8080", 9, "X"))
}

func TestMakeFlash(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?error=EXPIRED", nil)
	require.Equal(t, &Flash{Kind: "error", Text: errText["expired"]}, MakeFlash(r, "", ""))

	r = httptest.NewRequest(http.MethodGet, "/?ok=Custom+text", nil)
	require.Equal(t, &Flash{Kind: "ok", Text: "Custom text"}, MakeFlash(r, "", ""))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	require.Nil(t, MakeFlash(r, "", ""))
	require.Equal(t, "boom", MakeFlash(r, "boom", "").Text)
}

func TestSafeNext(t *testing.T) {
	require.Equal(t, "/admin/sessions", safeNext("/admin/sessions", "/admin"))
	require.Equal(t, "/admin", safeNext("https://evil.example", "/admin"))
	require.Equal(t, "/admin", safeNext("//evil.example", "/admin"))
	require.Equal(t, "/admin", safeNext("", "/admin"))
}

func TestRegisterThenMyRegistrationsFindsTheRecord(t *testing.T) {
	f := newFakeAPI()
	a := newApp(t, f, defaultQuiz)
	r := chi.NewRouter()
	r.Use(identity.Attach(identity.CookieOptions{}))
	r.Post("/register", RegisterSubmit(a))
	r.Get("/my", MyRegistrations(a))

	rec := do(t, r, http.MethodPost, "/register", url.Values{
		"session": {"3"},
		"code":    {"abc12345"},
		"email":   {" Sam@Example.com "},
		"name":    {"Sam Lee"},
		"phone":   {"+91 98765 43210"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/student/sessions/3?ok=registered", rec.Header().Get("Location"))
	require.Len(t, f.attendees, 1)
	require.Equal(t, "sam@example.com", f.attendees[0].Email)
	require.Equal(t, "9876543210", f.attendees[0].Phone)

	rec = do(t, r, http.MethodGet, "/my?email=SAM@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Go 101")
	require.Contains(t, body, "Sam Lee")
	require.NotContains(t, body, "No registrations for this email.")

	rec = do(t, r, http.MethodGet, "/my?email=other@example.com", nil)
	require.Contains(t, rec.Body.String(), "No registrations for this email.")
}

func TestRegister_InvalidPhoneNeverReachesBackend(t *testing.T) {
	f := newFakeAPI()
	a := newApp(t, f, defaultQuiz)
	r := chi.NewRouter()
	r.Use(identity.Attach(identity.CookieOptions{}))
	r.Post("/register", RegisterSubmit(a))

	rec := do(t, r, http.MethodPost, "/register", url.Values{
		"session": {"3"},
		"code":    {"ABC12345"},
		"email":   {"sam@example.com"},
		"name":    {"Sam Lee"},
		"phone":   {"12345"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotContains(t, f.Calls(), "register")
}
