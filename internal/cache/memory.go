package cache

import (
	"context"
	"sync"
	"time"

	"github.com/lojf/quizdesk/internal/models"
)

type memoryEntry struct {
	profile models.Profile
	expires time.Time
}

type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, token string) (models.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(token)
	e, ok := m.entries[k]
	if !ok {
		return models.Profile{}, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, k)
		return models.Profile{}, false, nil
	}
	return e.profile, true, nil
}

func (m *Memory) Set(_ context.Context, token string, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key(token)] = memoryEntry{profile: p, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key(token))
	return nil
}
