package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lojf/quizdesk/internal/models"
)

func (c *Client) Sessions(ctx context.Context) ([]models.Session, error) {
	return getList[models.Session](ctx, c, "/sessions/", nil)
}

func (c *Client) ActiveSessions(ctx context.Context) ([]models.Session, error) {
	return getList[models.Session](ctx, c, "/sessions/active_sessions/", nil)
}

func (c *Client) UpcomingSessions(ctx context.Context) ([]models.Session, error) {
	return getList[models.Session](ctx, c, "/sessions/upcoming_sessions/", nil)
}

func (c *Client) Session(ctx context.Context, id int) (models.Session, error) {
	var s models.Session
	if err := c.get(ctx, fmt.Sprintf("/sessions/%d/", id), nil, &s); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

func (c *Client) CreateSession(ctx context.Context, in models.SessionInput) (models.Session, error) {
	var s models.Session
	if err := c.post(ctx, "/sessions/", in, &s); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

func (c *Client) UpdateSession(ctx context.Context, id int, in models.SessionInput) (models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/sessions/%d/", id), nil, in, &s); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

func (c *Client) DeleteSession(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/sessions/%d/", id), nil, nil, nil)
}

func (c *Client) SessionAttendees(ctx context.Context, id int) ([]models.Attendee, error) {
	return getList[models.Attendee](ctx, c, fmt.Sprintf("/sessions/%d/attendees/", id), nil)
}

func (c *Client) VerifyCode(ctx context.Context, req models.VerifyCodeRequest) (models.VerifyCodeResult, error) {
	var res models.VerifyCodeResult
	if err := c.post(ctx, "/sessions/verify_code/", req, &res); err != nil {
		return models.VerifyCodeResult{}, err
	}
	return res, nil
}

// SendCode asks the backend to email the session code to the student.
func (c *Client) SendCode(ctx context.Context, email, sessionCode string) (models.SendCodeResult, error) {
	var res models.SendCodeResult
	body := map[string]string{"email": email, "session_code": sessionCode}
	if err := c.post(ctx, "/sessions/send_code/", body, &res); err != nil {
		return models.SendCodeResult{}, err
	}
	return res, nil
}

func (c *Client) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var st models.DashboardStats
	if err := c.get(ctx, "/stats/dashboard/", nil, &st); err != nil {
		return models.DashboardStats{}, err
	}
	return st, nil
}
