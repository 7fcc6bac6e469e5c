package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/config"
	"github.com/lojf/quizdesk/internal/models"
)

// Profiles caches the admin profile behind an access token so guarded pages
// don't hit /auth/profile/ on every request.
type Profiles interface {
	Get(ctx context.Context, token string) (models.Profile, bool, error)
	Set(ctx context.Context, token string, p models.Profile) error
	Delete(ctx context.Context, token string) error
}

// New picks the implementation named by cfg.Driver.
func New(cfg config.CacheConfig, log zerolog.Logger) (Profiles, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(cfg.TTL), nil
	case "redis":
		r := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		if err := r.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("profile cache: redis")
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// key never stores the raw token.
func key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "quizdesk:profile:" + hex.EncodeToString(sum[:])
}
