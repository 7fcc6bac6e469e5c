package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lojf/quizdesk/internal/api"
	"github.com/lojf/quizdesk/internal/config"
	"github.com/lojf/quizdesk/internal/db"
	"github.com/lojf/quizdesk/internal/models"
	"github.com/lojf/quizdesk/internal/quiz"
)

type fakeBackend struct {
	mu        sync.Mutex
	questions []models.Question
	calls     []string
	responses []models.ResponseInput
	nextID    int

	failQuestion map[int]int // question id -> remaining failures
	failFeedback bool
	failSubmit   int
	blockSubmit  chan struct{}
}

func (f *fakeBackend) Questions(ctx context.Context, sessionID int) ([]models.Question, error) {
	return f.questions, nil
}

func (f *fakeBackend) SubmitResponse(ctx context.Context, in models.ResponseInput) (models.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("response:%d", in.Question))
	if f.failQuestion[in.Question] > 0 {
		f.failQuestion[in.Question]--
		return models.Response{}, &api.Error{Status: 500}
	}
	f.responses = append(f.responses, in)
	f.nextID++
	return models.Response{ID: f.nextID}, nil
}

func (f *fakeBackend) SubmitFeedback(ctx context.Context, in models.FeedbackInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "feedback")
	if f.failFeedback {
		return errors.New("feedback down")
	}
	return nil
}

func (f *fakeBackend) SubmitQuiz(ctx context.Context, attendeeID int) error {
	if f.blockSubmit != nil {
		<-f.blockSubmit
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "submit")
	if f.failSubmit > 0 {
		f.failSubmit--
		return &api.Error{Status: 503}
	}
	return nil
}

func (f *fakeBackend) log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) count(call string) int {
	n := 0
	for _, c := range f.log() {
		if c == call {
			n++
		}
	}
	return n
}

func fiveQuestions() []models.Question {
	return []models.Question{
		{ID: 11, Text: "Pick one", QuestionType: models.MultipleChoice, Option1: "a", Option2: "b", Option3: "c"},
		{ID: 12, Text: "Explain", QuestionType: models.TextResponse},
		{ID: 13, Text: "Pick again", QuestionType: models.MultipleChoice, Option1: "x", Option2: "y"},
		{ID: 14, Text: "Describe", QuestionType: models.TextResponse},
		{ID: 15, Text: "Last", QuestionType: models.MultipleChoice, Option1: "p", Option2: "q"},
	}
}

func newRegistry(t *testing.T, b *fakeBackend) *quiz.Registry {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	cfg := config.QuizConfig{Duration: 5 * time.Minute, TickInterval: time.Second, AttemptTTL: time.Hour}
	return quiz.NewRegistry(cfg, b, quiz.NewLedger(gdb), zerolog.Nop())
}

func start(t *testing.T, reg *quiz.Registry) *quiz.Attempt {
	t.Helper()
	who := models.StudentIdentity{ID: 7, Email: "jane@example.com", Name: "Jane"}
	a, err := reg.Start(context.Background(), who, models.Session{ID: 3, Title: "Go 101"})
	require.NoError(t, err)
	require.Equal(t, quiz.StateInProgress, a.Snapshot().State)
	return a
}

func TestCountdownStartsAtFiveMinutes(t *testing.T) {
	a := start(t, newRegistry(t, &fakeBackend{questions: fiveQuestions()}))
	snap := a.Snapshot()
	require.Equal(t, 300, snap.Seconds)
	require.Equal(t, "5:00", snap.Clock)
}

func TestAutoSubmitFiresExactlyOnceAfter300Ticks(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions()}
	a := start(t, newRegistry(t, b))
	require.NoError(t, a.Answer(11, quiz.Answer{Option: 2}))

	ctx := context.Background()
	for i := 0; i < 299; i++ {
		a.Tick(ctx)
	}
	require.Zero(t, b.count("submit"))

	snap := a.Tick(ctx)
	require.Equal(t, quiz.StateDone, snap.State)
	require.True(t, snap.AutoSubmitted)
	require.Equal(t, 1, b.count("submit"))

	for i := 0; i < 50; i++ {
		a.Tick(ctx)
	}
	require.Equal(t, 1, b.count("submit"))

	sum, ok := a.Summary()
	require.True(t, ok)
	require.True(t, sum.AutoSubmitted)
	require.Equal(t, 1, sum.Answered)
	require.Equal(t, 5, sum.Total)
	require.Equal(t, "Go 101", sum.SessionTitle)
}

func TestSubmitWritesOnlyAnsweredQuestionsThenMarksSubmitted(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions()}
	a := start(t, newRegistry(t, b))

	require.NoError(t, a.Answer(13, quiz.Answer{Option: 1}))
	require.NoError(t, a.Answer(12, quiz.Answer{Text: "  because  "}))

	sum, err := a.Submit(context.Background(), quiz.Manual)
	require.NoError(t, err)
	require.False(t, sum.AutoSubmitted)
	require.Equal(t, 2, sum.Answered)

	require.Equal(t, []string{"response:12", "response:13", "submit"}, b.log())
	require.Len(t, b.responses, 2)
	require.Equal(t, "because", b.responses[0].TextResponse)
	require.Nil(t, b.responses[0].SelectedOption)
	require.NotNil(t, b.responses[1].SelectedOption)
	require.Equal(t, 1, *b.responses[1].SelectedOption)
}

func TestManualSubmitRequiresAnAnswer(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions()}
	a := start(t, newRegistry(t, b))

	_, err := a.Submit(context.Background(), quiz.Manual)
	require.ErrorIs(t, err, quiz.ErrNoAnswers)
	require.Empty(t, b.log())
	require.Equal(t, quiz.StateInProgress, a.Snapshot().State)
}

func TestAutoSubmitWithNoAnswersStillMarksSubmitted(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions()}
	a := start(t, newRegistry(t, b))

	for i := 0; i < 300; i++ {
		a.Tick(context.Background())
	}
	require.Equal(t, []string{"submit"}, b.log())
	require.Equal(t, quiz.StateDone, a.Snapshot().State)
}

func TestFailedWriteReturnsToInProgressAndRetrySkipsWrittenAnswers(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions(), failQuestion: map[int]int{13: 1}}
	a := start(t, newRegistry(t, b))
	ctx := context.Background()

	require.NoError(t, a.Answer(11, quiz.Answer{Option: 1}))
	require.NoError(t, a.Answer(13, quiz.Answer{Option: 2}))
	require.NoError(t, a.Answer(15, quiz.Answer{Option: 1}))

	for i := 0; i < 10; i++ {
		a.Tick(ctx)
	}

	_, err := a.Submit(ctx, quiz.Manual)
	var we *quiz.WriteError
	require.ErrorAs(t, err, &we)
	require.Equal(t, 13, we.QuestionID)
	require.Equal(t, 3, we.Position)

	snap := a.Snapshot()
	require.Equal(t, quiz.StateInProgress, snap.State)
	require.Equal(t, 290, snap.Seconds, "countdown is not restarted")
	require.Contains(t, snap.Error, "question 3")
	require.Equal(t, []string{"response:11", "response:13"}, b.log())

	_, err = a.Submit(ctx, quiz.Manual)
	require.NoError(t, err)
	require.Equal(t, []string{"response:11", "response:13", "response:13", "response:15", "submit"}, b.log())
	require.Equal(t, 1, b.count("response:11"))
}

func TestFailedMarkSubmittedIsRetryable(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions(), failSubmit: 1}
	a := start(t, newRegistry(t, b))
	ctx := context.Background()
	require.NoError(t, a.Answer(11, quiz.Answer{Option: 3}))
	a.SetFeedback("nice session")

	_, err := a.Submit(ctx, quiz.Manual)
	require.Error(t, err)
	require.Equal(t, api.MsgUnavailable, a.Snapshot().Error)

	_, err = a.Submit(ctx, quiz.Manual)
	require.NoError(t, err)
	require.Equal(t, []string{"response:11", "feedback", "submit", "submit"}, b.log())
}

func TestRetakeAfterCompletedSubmissionSendsAnswersAgain(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions()}
	reg := newRegistry(t, b)
	ctx := context.Background()

	first := start(t, reg)
	require.NoError(t, first.Answer(11, quiz.Answer{Option: 1}))
	_, err := first.Submit(ctx, quiz.Manual)
	require.NoError(t, err)

	// has_submitted was reset by an admin; the student takes the quiz again.
	retake := start(t, reg)
	require.NoError(t, retake.Answer(11, quiz.Answer{Option: 2}))
	sum, err := retake.Submit(ctx, quiz.Manual)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Answered)

	require.Equal(t, []string{"response:11", "submit", "response:11", "submit"}, b.log())
	require.Len(t, b.responses, 2)
	require.Equal(t, 2, *b.responses[1].SelectedOption)
}

func TestExpiredAttemptWithoutAnswersCanBeResubmitted(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions(), failSubmit: 1}
	a := start(t, newRegistry(t, b))
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		a.Tick(ctx)
	}
	snap := a.Snapshot()
	require.Equal(t, quiz.StateInProgress, snap.State)
	require.Zero(t, snap.Seconds)
	require.Equal(t, api.MsgUnavailable, snap.Error)

	_, err := a.Submit(ctx, quiz.Manual)
	require.NoError(t, err)
	require.Equal(t, []string{"submit", "submit"}, b.log())
	require.Equal(t, quiz.StateDone, a.Snapshot().State)
}

func TestFeedbackFailureDoesNotBlockSubmission(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions(), failFeedback: true}
	a := start(t, newRegistry(t, b))
	require.NoError(t, a.Answer(14, quiz.Answer{Text: "ok"}))
	a.SetFeedback("thanks")

	_, err := a.Submit(context.Background(), quiz.Manual)
	require.NoError(t, err)
	require.Equal(t, []string{"response:14", "feedback", "submit"}, b.log())
}

func TestManualAndAutoSubmitCannotBothRun(t *testing.T) {
	b := &fakeBackend{questions: fiveQuestions(), blockSubmit: make(chan struct{})}
	a := start(t, newRegistry(t, b))
	ctx := context.Background()
	require.NoError(t, a.Answer(11, quiz.Answer{Option: 1}))

	for i := 0; i < 299; i++ {
		a.Tick(ctx)
	}

	done := make(chan error, 1)
	go func() {
		_, err := a.Submit(ctx, quiz.Manual)
		done <- err
	}()
	require.Eventually(t, func() bool {
		return a.Snapshot().State == quiz.StateSubmitting
	}, time.Second, 5*time.Millisecond)

	// The timer reaches zero while the manual run is in flight.
	snap := a.Tick(ctx)
	require.Equal(t, 0, snap.Seconds)
	_, err := a.Submit(ctx, quiz.Auto)
	require.ErrorIs(t, err, quiz.ErrNotInProgress)

	close(b.blockSubmit)
	require.NoError(t, <-done)
	require.Equal(t, 1, b.count("submit"))
	require.Equal(t, 1, b.count("response:11"))
	require.False(t, a.Snapshot().AutoSubmitted)
}

func TestAnswerValidation(t *testing.T) {
	a := start(t, newRegistry(t, &fakeBackend{questions: fiveQuestions()}))

	require.ErrorIs(t, a.Answer(99, quiz.Answer{Option: 1}), quiz.ErrUnknownAnswer)
	require.ErrorIs(t, a.Answer(13, quiz.Answer{Option: 4}), quiz.ErrUnknownAnswer)

	require.NoError(t, a.Answer(12, quiz.Answer{Text: "draft"}))
	require.Equal(t, 1, a.Snapshot().Answered)
	require.NoError(t, a.Answer(12, quiz.Answer{Text: "   "}))
	require.Zero(t, a.Snapshot().Answered)
}

func TestStartWithoutQuestionsIsAnError(t *testing.T) {
	reg := newRegistry(t, &fakeBackend{})
	a, err := reg.Start(context.Background(), models.StudentIdentity{ID: 1}, models.Session{ID: 2})
	require.ErrorIs(t, err, quiz.ErrNoQuestions)
	require.Equal(t, quiz.StateError, a.Snapshot().State)

	_, err = a.Submit(context.Background(), quiz.Auto)
	require.ErrorIs(t, err, quiz.ErrNotInProgress)
}

func TestRegistryScopesAttemptsToAttendee(t *testing.T) {
	reg := newRegistry(t, &fakeBackend{questions: fiveQuestions()})
	a := start(t, reg)

	got, ok := reg.Get(a.ID, 7)
	require.True(t, ok)
	require.Same(t, a, got)

	_, ok = reg.Get(a.ID, 8)
	require.False(t, ok)

	b := start(t, reg)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, 2, reg.Len())
}

func TestRegistryReapsIdleAttempts(t *testing.T) {
	reg := newRegistry(t, &fakeBackend{questions: fiveQuestions()})
	a := start(t, reg)
	held := start(t, reg)
	release, ok := held.Acquire()
	require.True(t, ok)

	_, again := held.Acquire()
	require.False(t, again, "one live view per attempt")

	require.Zero(t, reg.Reap(time.Now()))
	require.Equal(t, 1, reg.Reap(time.Now().Add(2*time.Hour)))
	_, ok = reg.Get(a.ID, 7)
	require.False(t, ok)

	release()
	require.Equal(t, 1, reg.Reap(time.Now().Add(2*time.Hour)))
	require.Zero(t, reg.Len())
}
