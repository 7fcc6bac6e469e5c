package quiz

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/config"
	"github.com/lojf/quizdesk/internal/lifecycle"
	"github.com/lojf/quizdesk/internal/metrics"
	"github.com/lojf/quizdesk/internal/models"
)

// Registry holds the attempts of this process. An attempt is addressed by
// its id, which the quiz page carries in its form and socket URL.
type Registry struct {
	backend  Backend
	ledger   Ledger
	logger   zerolog.Logger
	duration time.Duration
	tick     time.Duration
	ttl      time.Duration

	mu       sync.Mutex
	attempts map[string]*Attempt
}

func NewRegistry(cfg config.QuizConfig, backend Backend, ledger Ledger, logger zerolog.Logger) *Registry {
	return &Registry{
		backend:  backend,
		ledger:   ledger,
		logger:   logger,
		duration: cfg.Duration,
		tick:     cfg.TickInterval,
		ttl:      cfg.AttemptTTL,
		attempts: map[string]*Attempt{},
	}
}

func (r *Registry) TickInterval() time.Duration { return r.tick }

// Start creates an attempt and loads its questions. The attempt is returned
// even when loading failed so the page can show the error state.
func (r *Registry) Start(ctx context.Context, who models.StudentIdentity, session models.Session) (*Attempt, error) {
	a := newAttempt(uuid.NewString(), who, session, r.duration, r.backend, r.ledger, r.logger)

	r.mu.Lock()
	r.attempts[a.ID] = a
	metrics.ActiveAttempts.Set(float64(len(r.attempts)))
	r.mu.Unlock()

	err := a.Load(ctx)
	a.persist(ctx)
	return a, err
}

// Get returns the attempt only to the attendee who started it.
func (r *Registry) Get(id string, attendeeID int) (*Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok || a.Attendee.ID != attendeeID {
		return nil, false
	}
	return a, true
}

// Reap drops attempts idle for longer than the configured TTL, except those
// with a live view or a submission in flight.
func (r *Registry) Reap(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.attempts {
		if a.busy() || now.Sub(a.idleSince()) < r.ttl {
			continue
		}
		delete(r.attempts, id)
		n++
	}
	metrics.ActiveAttempts.Set(float64(len(r.attempts)))
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// RunReaper reaps on every interval until ctx ends.
func (r *Registry) RunReaper(ctx context.Context, every time.Duration) *lifecycle.Ticker {
	return lifecycle.Start(ctx, every, func(now time.Time) bool {
		if n := r.Reap(now); n > 0 {
			r.logger.Debug().Int("reaped", n).Msg("Dropped idle quiz attempts")
		}
		return true
	})
}
