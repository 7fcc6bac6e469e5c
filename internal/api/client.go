package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lojf/quizdesk/internal/config"
	"github.com/lojf/quizdesk/internal/metrics"
)

const (
	tokenPath   = "/auth/token/"
	refreshPath = "/auth/token/refresh/"
)

// Client talks to the REST backend. It is safe to share; per-visitor token
// state is attached with WithTokens.
type Client struct {
	baseURL    string
	retryCount int
	retryDelay time.Duration
	client     *http.Client
	logger     zerolog.Logger
	tokens     TokenStore
	now        func() time.Time
}

func NewClient(cfg config.BackendConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		tokens: NoTokens{},
		now:    time.Now,
	}
}

// WithTokens returns a copy of the client that authenticates with ts.
func (c *Client) WithTokens(ts TokenStore) *Client {
	cp := *c
	if ts == nil {
		ts = NoTokens{}
	}
	cp.tokens = ts
	return &cp
}

// refreshable reports whether a 401 on path should trigger a token refresh.
// Student and public routes are never refreshed.
func refreshable(path string) bool {
	if path == refreshPath || path == tokenPath {
		return false
	}
	return strings.Contains(path, "/admin") || strings.Contains(path, "/auth")
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = b
	}

	// Only clients from WithTokens hold tokens, and only admin pages and the
	// auth flow build those, so this covers admin/auth traffic whatever the path.
	access, refresh := c.tokens.Tokens()
	if access != "" && refresh != "" && path != refreshPath && path != tokenPath && accessExpired(access, c.now()) {
		if err := c.refresh(ctx); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, query, payload, true)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && refreshable(path) {
		if _, rt := c.tokens.Tokens(); rt != "" {
			drain(resp)
			if err := c.refresh(ctx); err != nil {
				return err
			}
			resp, err = c.send(ctx, method, path, query, payload, true)
			if err != nil {
				return err
			}
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// send performs the request. GETs are retried on transport errors and 5xx;
// writes go out exactly once.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, auth bool) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.retryCount
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("path", path).Err(lastErr).Msg("Retrying backend request")
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(c.retryDelay * time.Duration(i)):
			}
		}

		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if auth {
			if access, _ := c.tokens.Tokens(); access != "" {
				req.Header.Set("Authorization", "Bearer "+access)
			}
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			metrics.ObserveBackend(method, path, 0, time.Since(start))
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		metrics.ObserveBackend(method, path, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 500 && i < attempts-1 {
			lastErr = fmt.Errorf("backend returned status %d", resp.StatusCode)
			drain(resp)
			continue
		}
		return resp, nil
	}

	c.logger.Error().Err(lastErr).Str("method", method).Str("path", path).Msg("Backend unreachable")
	return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, lastErr)
}

// refresh exchanges the stored refresh token for a new access token. Any
// failure clears both tokens.
func (c *Client) refresh(ctx context.Context) error {
	_, rt := c.tokens.Tokens()
	if rt == "" {
		c.tokens.ClearTokens()
		return ErrSessionExpired
	}

	payload, err := json.Marshal(map[string]string{"refresh": rt})
	if err != nil {
		return fmt.Errorf("failed to encode refresh request: %w", err)
	}
	resp, err := c.send(ctx, http.MethodPost, refreshPath, nil, payload, false)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		c.tokens.ClearTokens()
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.TokenRefreshes.WithLabelValues("rejected").Inc()
		c.tokens.ClearTokens()
		c.logger.Info().Int("status", resp.StatusCode).Msg("Refresh token rejected")
		return ErrSessionExpired
	}

	var pair TokenPairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil || pair.Access == "" {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		c.tokens.ClearTokens()
		return ErrSessionExpired
	}
	if pair.Refresh == "" {
		pair.Refresh = rt
	}
	c.tokens.SetTokens(pair.Access, pair.Refresh)
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	return nil
}

type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// getList decodes a collection that may be a bare array or a paginated
// envelope with a "results" field.
func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := c.get(ctx, path, query, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw)
}

func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}
	if raw[0] == '[' {
		out := []T{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		return out, nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	if page.Results == nil {
		return nil, errors.New("response is neither a list nor a page")
	}
	return page.Results, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
