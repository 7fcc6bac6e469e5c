package api

import (
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore holds the bearer tokens for one visitor.
type TokenStore interface {
	Tokens() (access, refresh string)
	SetTokens(access, refresh string)
	ClearTokens()
}

// NoTokens is the store for anonymous callers.
type NoTokens struct{}

func (NoTokens) Tokens() (string, string) { return "", "" }
func (NoTokens) SetTokens(string, string) {}
func (NoTokens) ClearTokens()             {}

// MemoryTokens keeps tokens in memory.
type MemoryTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func NewMemoryTokens(access, refresh string) *MemoryTokens {
	return &MemoryTokens{access: access, refresh: refresh}
}

func (m *MemoryTokens) Tokens() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh
}

func (m *MemoryTokens) SetTokens(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
}

func (m *MemoryTokens) ClearTokens() {
	m.SetTokens("", "")
}

const expirySkew = 10 * time.Second

// accessExpired reads exp from a JWT without verifying it. Tokens that are
// not JWTs, or carry no exp, are left for the backend to judge.
func accessExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Add(expirySkew).Before(exp.Time)
}

// Subject returns the "sub" or "user_id" claim of an unverified JWT.
func Subject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	switch v := claims["user_id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}
