package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lojf/quizdesk/internal/models"
)

func (c *Client) RegisterStudent(ctx context.Context, in models.StudentRegistration) (models.Attendee, error) {
	var a models.Attendee
	if err := c.post(ctx, "/students/", in, &a); err != nil {
		return models.Attendee{}, err
	}
	return a, nil
}

// Students lists attendees, optionally narrowed to one session.
func (c *Client) Students(ctx context.Context, sessionID int) ([]models.Attendee, error) {
	var q url.Values
	if sessionID > 0 {
		q = url.Values{"class_session": {strconv.Itoa(sessionID)}}
	}
	return getList[models.Attendee](ctx, c, "/students/", q)
}

func (c *Client) Student(ctx context.Context, id int) (models.Attendee, error) {
	var a models.Attendee
	if err := c.get(ctx, fmt.Sprintf("/students/%d/", id), nil, &a); err != nil {
		return models.Attendee{}, err
	}
	return a, nil
}

func (c *Client) UpdateStudent(ctx context.Context, id int, in models.AttendeeUpdate) (models.Attendee, error) {
	var a models.Attendee
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/students/%d/", id), nil, in, &a); err != nil {
		return models.Attendee{}, err
	}
	return a, nil
}

func (c *Client) DeleteStudent(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/students/%d/", id), nil, nil, nil)
}

// SubmitQuiz marks the attendee's quiz as submitted. It is the last write of
// a submission run.
func (c *Client) SubmitQuiz(ctx context.Context, attendeeID int) error {
	return c.post(ctx, fmt.Sprintf("/students/%d/submit_quiz/", attendeeID), nil, nil)
}

func (c *Client) MyRegistrations(ctx context.Context, email string) ([]models.Attendee, error) {
	return getList[models.Attendee](ctx, c, "/attendees/my_registrations/", url.Values{"email": {email}})
}

func (c *Client) CompletedSessions(ctx context.Context, attendeeID int) ([]int, error) {
	var res models.CompletedSessions
	if err := c.get(ctx, fmt.Sprintf("/student/%d/completed-sessions/", attendeeID), nil, &res); err != nil {
		return nil, err
	}
	return res.CompletedSessionIDs, nil
}
