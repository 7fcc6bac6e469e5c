package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/lojf/quizdesk/internal/models"
)

// Questions lists questions; sessionID 0 lists all of them.
func (c *Client) Questions(ctx context.Context, sessionID int) ([]models.Question, error) {
	var q url.Values
	if sessionID > 0 {
		q = url.Values{"class_session": {strconv.Itoa(sessionID)}}
	}
	return getList[models.Question](ctx, c, "/questions/", q)
}

func (c *Client) CreateQuestion(ctx context.Context, in models.Question) (models.Question, error) {
	var out models.Question
	if err := c.post(ctx, "/questions/", in, &out); err != nil {
		return models.Question{}, err
	}
	return out, nil
}

func (c *Client) UpdateQuestion(ctx context.Context, id int, in models.Question) (models.Question, error) {
	var out models.Question
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/questions/%d/", id), nil, in, &out); err != nil {
		return models.Question{}, err
	}
	return out, nil
}

func (c *Client) DeleteQuestion(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/questions/%d/", id), nil, nil, nil)
}

func (c *Client) SubmitResponse(ctx context.Context, in models.ResponseInput) (models.Response, error) {
	var out models.Response
	if err := c.post(ctx, "/responses/", in, &out); err != nil {
		return models.Response{}, err
	}
	return out, nil
}

func (c *Client) Responses(ctx context.Context, attendeeID int) ([]models.Response, error) {
	return getList[models.Response](ctx, c, "/responses/", url.Values{"attendee": {strconv.Itoa(attendeeID)}})
}

// QuizProgress joins the session's questions with the attendee's responses.
// Both fetches run concurrently and must both succeed.
func (c *Client) QuizProgress(ctx context.Context, attendeeID, sessionID int) (models.QuizProgress, error) {
	var (
		questions []models.Question
		responses []models.Response
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = c.Questions(gctx, sessionID)
		return err
	})
	g.Go(func() error {
		var err error
		responses, err = c.Responses(gctx, attendeeID)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.QuizProgress{}, err
	}

	inSession := make(map[int]bool, len(questions))
	for _, q := range questions {
		inSession[q.ID] = true
	}
	// Duplicate writes for one question count once.
	seen := map[int]bool{}
	for _, r := range responses {
		if inSession[r.Question.ID] {
			seen[r.Question.ID] = true
		}
	}
	answered := len(seen)
	return models.QuizProgress{
		TotalQuestions: len(questions),
		Answered:       answered,
		Pending:        len(questions) - answered,
	}, nil
}
