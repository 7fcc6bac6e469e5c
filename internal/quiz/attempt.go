package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/lifecycle"
	"github.com/lojf/quizdesk/internal/metrics"
	"github.com/lojf/quizdesk/internal/models"
)

type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateError      State = "error"
)

// Trigger tells a manual submit from the timer's. It only changes messaging
// and the zero-answer rule.
type Trigger string

const (
	Manual Trigger = "manual"
	Auto   Trigger = "auto"
)

var (
	ErrNoAnswers     = errors.New("answer at least one question before submitting")
	ErrNotInProgress = errors.New("quiz is not in progress")
	ErrNoQuestions   = errors.New("no questions available for this session")
	ErrUnknownAnswer = errors.New("answer does not match a question")
)

// Backend is the part of the REST client a quiz run talks to.
type Backend interface {
	Questions(ctx context.Context, sessionID int) ([]models.Question, error)
	SubmitResponse(ctx context.Context, in models.ResponseInput) (models.Response, error)
	SubmitFeedback(ctx context.Context, in models.FeedbackInput) error
	SubmitQuiz(ctx context.Context, attendeeID int) error
}

type Answer struct {
	Option int
	Text   string
}

func (a Answer) empty() bool { return a.Option == 0 && strings.TrimSpace(a.Text) == "" }

// WriteError is a failed answer write, tied to the question it was for.
type WriteError struct {
	QuestionID int
	Position   int
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("answer to question %d failed: %v", e.Position, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Summary is what the confirmation page shows.
type Summary struct {
	AttendeeName  string
	SessionID     int
	SessionTitle  string
	Answered      int
	Total         int
	AutoSubmitted bool
}

// Snapshot is a consistent read of an attempt for rendering and the live
// channel.
type Snapshot struct {
	ID            string        `json:"id"`
	State         State         `json:"state"`
	Remaining     time.Duration `json:"-"`
	Seconds       int           `json:"remaining"`
	Clock         string        `json:"clock"`
	Answered      int           `json:"answered"`
	Total         int           `json:"total"`
	AutoSubmitted bool          `json:"auto_submitted"`
	Error         string        `json:"error,omitempty"`
}

// Attempt is one timed run of a quiz by one attendee. Reloading the quiz
// page starts a new Attempt with a fresh countdown.
type Attempt struct {
	ID        string
	Attendee  models.StudentIdentity
	Session   models.Session
	StartedAt time.Time

	backend Backend
	ledger  Ledger
	logger  zerolog.Logger

	mu           sync.Mutex
	state        State
	questions    []models.Question
	answers      map[int]Answer
	feedback     string
	feedbackSent bool
	duration     time.Duration
	remaining    time.Duration
	autoFired    bool
	auto         bool
	lastErr      string
	summary      *Summary
	touched      time.Time
	owned        bool
}

func newAttempt(id string, who models.StudentIdentity, session models.Session, duration time.Duration, backend Backend, ledger Ledger, logger zerolog.Logger) *Attempt {
	return &Attempt{
		ID:       id,
		Attendee: who,
		Session:  session,
		backend:  backend,
		ledger:   ledger,
		logger:   logger.With().Str("attempt", id).Int("attendee", who.ID).Int("session", session.ID).Logger(),
		state:    StateLoading,
		answers:  map[int]Answer{},
		duration: duration,
		touched:  time.Now(),
	}
}

// Load fetches the questions. Success starts the countdown; failure or an
// empty question list moves the attempt to the error state.
func (a *Attempt) Load(ctx context.Context) error {
	qs, err := a.backend.Questions(ctx, a.Session.ID)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateLoading {
		return ErrNotInProgress
	}
	if err != nil {
		a.state = StateError
		a.lastErr = api.UserMessage(err, "Failed to load questions. Please try again.")
		return fmt.Errorf("load questions: %w", err)
	}
	if len(qs) == 0 {
		a.state = StateError
		a.lastErr = ErrNoQuestions.Error()
		return ErrNoQuestions
	}
	a.questions = qs
	a.state = StateInProgress
	a.remaining = a.duration
	a.StartedAt = time.Now()
	return nil
}

func (a *Attempt) Questions() []models.Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Question(nil), a.questions...)
}

func (a *Attempt) Answers() map[int]Answer {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]Answer, len(a.answers))
	for k, v := range a.answers {
		out[k] = v
	}
	return out
}

// Answer records or clears the answer to one question. Answers are only
// accepted while the quiz is in progress.
func (a *Attempt) Answer(questionID int, ans Answer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInProgress {
		return ErrNotInProgress
	}
	a.touched = time.Now()

	q, ok := a.question(questionID)
	if !ok {
		return ErrUnknownAnswer
	}
	if ans.empty() {
		delete(a.answers, questionID)
		return nil
	}
	if q.QuestionType == models.MultipleChoice {
		valid := false
		for _, opt := range q.Options() {
			if opt.Index == ans.Option {
				valid = true
				break
			}
		}
		if !valid {
			return ErrUnknownAnswer
		}
		a.answers[questionID] = Answer{Option: ans.Option}
		return nil
	}
	a.answers[questionID] = Answer{Text: strings.TrimSpace(ans.Text)}
	return nil
}

func (a *Attempt) question(id int) (models.Question, bool) {
	for _, q := range a.questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

func (a *Attempt) SetFeedback(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateInProgress {
		a.feedback = strings.TrimSpace(text)
	}
}

// Tick advances the countdown by one second. The countdown keeps running
// while a submission is in flight or after one failed. When it reaches zero
// the first time, an automatic submission starts if none is running.
func (a *Attempt) Tick(ctx context.Context) Snapshot {
	a.mu.Lock()
	fire := false
	if (a.state == StateInProgress || a.state == StateSubmitting) && a.remaining > 0 {
		a.remaining -= time.Second
		if a.remaining < 0 {
			a.remaining = 0
		}
		if a.remaining == 0 && !a.autoFired {
			a.autoFired = true
			fire = a.state == StateInProgress
		}
	}
	a.mu.Unlock()

	if fire {
		a.logger.Info().Msg("Time is up; auto-submitting")
		// The run outlives the view that ticked it.
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		if _, err := a.Submit(sctx, Auto); err != nil {
			a.logger.Warn().Err(err).Msg("Auto-submit failed")
		}
	}
	return a.Snapshot()
}

type planItem struct {
	position int
	question models.Question
	answer   Answer
}

// Submit runs the write sequence: one write per answered question in
// question order, then the optional feedback, then mark-submitted. Only one
// run can start, and only from in_progress; the state flips to submitting
// before the first write. Any failure returns the attempt to in_progress.
// A manual submit needs at least one answer unless the countdown already
// ran out.
func (a *Attempt) Submit(ctx context.Context, trigger Trigger) (Summary, error) {
	a.mu.Lock()
	if a.state != StateInProgress {
		a.mu.Unlock()
		return Summary{}, ErrNotInProgress
	}
	var plan []planItem
	for i, q := range a.questions {
		if ans, ok := a.answers[q.ID]; ok && !ans.empty() {
			plan = append(plan, planItem{position: i + 1, question: q, answer: ans})
		}
	}
	// Once time is up a retry may send nothing but mark-submitted.
	if trigger == Manual && len(plan) == 0 && !a.autoFired {
		a.mu.Unlock()
		return Summary{}, ErrNoAnswers
	}
	a.state = StateSubmitting
	a.lastErr = ""
	a.touched = time.Now()
	feedback := a.feedback
	if a.feedbackSent {
		feedback = ""
	}
	total := len(a.questions)
	a.mu.Unlock()

	a.logger.Info().Str("trigger", string(trigger)).Int("answers", len(plan)).Msg("Submitting quiz")
	feedbackSent, err := a.run(ctx, plan, feedback)

	a.mu.Lock()
	if feedbackSent {
		a.feedbackSent = true
	}
	if err != nil {
		a.state = StateInProgress
		a.lastErr = submitMessage(err)
		a.mu.Unlock()
		metrics.QuizSubmissions.WithLabelValues(string(trigger), "error").Inc()
		a.logger.Warn().Err(err).Msg("Quiz submission failed")
		a.persist(ctx)
		return Summary{}, err
	}
	sum := Summary{
		AttendeeName:  a.Attendee.Name,
		SessionID:     a.Session.ID,
		SessionTitle:  a.Session.Title,
		Answered:      len(plan),
		Total:         total,
		AutoSubmitted: trigger == Auto,
	}
	a.state = StateDone
	a.auto = trigger == Auto
	a.summary = &sum
	a.mu.Unlock()

	// Receipts only guard retries of an unfinished submission. A retake
	// after an admin reset must send its answers again.
	if err := a.ledger.Clear(ctx, a.Attendee.ID); err != nil {
		a.logger.Warn().Err(err).Msg("Ledger clear failed")
	}
	metrics.QuizSubmissions.WithLabelValues(string(trigger), "ok").Inc()
	a.persist(ctx)
	return sum, nil
}

func (a *Attempt) run(ctx context.Context, plan []planItem, feedback string) (feedbackSent bool, err error) {
	written, lerr := a.ledger.Written(ctx, a.Attendee.ID)
	if lerr != nil {
		a.logger.Warn().Err(lerr).Msg("Ledger read failed; sending every answer")
		written = map[int]bool{}
	}

	for _, item := range plan {
		if written[item.question.ID] {
			continue
		}
		in := models.ResponseInput{Attendee: a.Attendee.ID, Question: item.question.ID}
		if item.question.QuestionType == models.MultipleChoice {
			opt := item.answer.Option
			in.SelectedOption = &opt
		} else {
			in.TextResponse = item.answer.Text
		}
		resp, err := a.backend.SubmitResponse(ctx, in)
		if err != nil {
			return false, &WriteError{QuestionID: item.question.ID, Position: item.position, Err: err}
		}
		receipt := models.AnswerReceipt{
			AttemptID:  a.ID,
			AttendeeID: a.Attendee.ID,
			QuestionID: item.question.ID,
			SessionID:  a.Session.ID,
			ResponseID: resp.ID,
		}
		if err := a.ledger.Record(ctx, receipt); err != nil {
			a.logger.Warn().Err(err).Int("question", item.question.ID).Msg("Ledger write failed")
		}
	}

	if feedback != "" {
		fb := models.FeedbackInput{Attendee: a.Attendee.ID, Content: feedback, FeedbackType: models.FeedbackQuiz}
		if err := a.backend.SubmitFeedback(ctx, fb); err != nil {
			a.logger.Warn().Err(err).Msg("Feedback write failed; continuing")
		} else {
			feedbackSent = true
		}
	}

	if err := a.backend.SubmitQuiz(ctx, a.Attendee.ID); err != nil {
		return feedbackSent, fmt.Errorf("mark submitted: %w", err)
	}
	return feedbackSent, nil
}

func submitMessage(err error) string {
	msg := api.UserMessage(err, "Failed to submit quiz. Please try again.")
	var we *WriteError
	if errors.As(err, &we) {
		return fmt.Sprintf("Could not save your answer to question %d. %s", we.Position, msg)
	}
	return msg
}

func (a *Attempt) persist(ctx context.Context) {
	a.mu.Lock()
	row := models.QuizAttempt{
		ID:            a.ID,
		AttendeeID:    a.Attendee.ID,
		SessionID:     a.Session.ID,
		State:         string(a.state),
		StartedAt:     a.StartedAt,
		AutoSubmitted: a.auto,
		Answered:      len(a.answers),
		Total:         len(a.questions),
		LastError:     a.lastErr,
	}
	if a.state == StateDone {
		now := time.Now()
		row.FinishedAt = &now
	}
	a.mu.Unlock()

	if err := a.ledger.SaveAttempt(ctx, row); err != nil {
		a.logger.Warn().Err(err).Msg("Attempt audit write failed")
	}
}

func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		ID:            a.ID,
		State:         a.state,
		Remaining:     a.remaining,
		Seconds:       int(a.remaining / time.Second),
		Clock:         lifecycle.FormatClock(a.remaining),
		Answered:      len(a.answers),
		Total:         len(a.questions),
		AutoSubmitted: a.auto,
		Error:         a.lastErr,
	}
}

// Summary is set once the attempt is done.
func (a *Attempt) Summary() (Summary, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.summary == nil {
		return Summary{}, false
	}
	return *a.summary, true
}

// Acquire claims the attempt's countdown for one live view. A second view
// is refused so the timer cannot run twice as fast.
func (a *Attempt) Acquire() (release func(), ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owned {
		return nil, false
	}
	a.owned = true
	return func() {
		a.mu.Lock()
		a.owned = false
		a.mu.Unlock()
	}, true
}

func (a *Attempt) idleSince() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.touched
}

func (a *Attempt) busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owned || a.state == StateSubmitting
}
