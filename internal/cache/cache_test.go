package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lojf/quizdesk/internal/config"
	"github.com/lojf/quizdesk/internal/models"
)

func exercise(t *testing.T, c Profiles) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "tok-1", models.Profile{ID: 1, Username: "admin", IsStaff: true}))
	p, ok, err := c.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "admin", p.Username)

	_, ok, _ = c.Get(ctx, "tok-2")
	require.False(t, ok)

	require.NoError(t, c.Delete(ctx, "tok-1"))
	_, ok, _ = c.Get(ctx, "tok-1")
	require.False(t, ok)
	require.NoError(t, c.Delete(ctx, "tok-1"), "delete is idempotent")
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory(time.Minute))
}

func TestMemory_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(context.Background(), "tok", models.Profile{ID: 1}))
	now = now.Add(59 * time.Second)
	_, ok, _ := m.Get(context.Background(), "tok")
	require.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = m.Get(context.Background(), "tok")
	require.False(t, ok)
}

func TestKeyHidesToken(t *testing.T) {
	k := key("secret-token")
	require.True(t, strings.HasPrefix(k, "quizdesk:profile:"))
	require.NotContains(t, k, "secret-token")
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(config.CacheConfig{Driver: "memcached"}, zerolog.Nop())
	require.Error(t, err)
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	c, err := New(config.CacheConfig{Driver: "redis", RedisAddr: addr, TTL: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	exercise(t, c)
}
