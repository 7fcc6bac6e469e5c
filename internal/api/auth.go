package api

import (
	"context"
	"fmt"

	"github.com/lojf/quizdesk/internal/models"
)

// ObtainToken exchanges credentials for a token pair. It does not touch the
// token store; callers persist the pair once the login is accepted.
func (c *Client) ObtainToken(ctx context.Context, username, password string) (models.TokenPair, error) {
	var pair models.TokenPair
	body := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, tokenPath, body, &pair); err != nil {
		return models.TokenPair{}, err
	}
	if pair.Access == "" {
		return models.TokenPair{}, fmt.Errorf("token response without access token")
	}
	return pair, nil
}

func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var p models.Profile
	if err := c.get(ctx, "/auth/profile/", nil, &p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

func (c *Client) RegisterAccount(ctx context.Context, in models.AccountRegistration) error {
	return c.post(ctx, "/auth/register/", in, nil)
}

// StudentLogin checks attendee credentials. Students hold no bearer token.
func (c *Client) StudentLogin(ctx context.Context, email, password string) (models.StudentLoginResult, error) {
	var res models.StudentLoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/student/login/", body, &res); err != nil {
		return models.StudentLoginResult{}, err
	}
	return res, nil
}
