package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lojf/quizdesk/internal/models"
)

func (c *Client) SubmitFeedback(ctx context.Context, in models.FeedbackInput) error {
	return c.post(ctx, "/feedback/", in, nil)
}

func (c *Client) FeedbackList(ctx context.Context) ([]models.Feedback, error) {
	return getList[models.Feedback](ctx, c, "/feedback/", nil)
}

func (c *Client) Feedback(ctx context.Context, id int) (models.Feedback, error) {
	var f models.Feedback
	if err := c.get(ctx, fmt.Sprintf("/feedback/%d/", id), nil, &f); err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}

func (c *Client) DeleteFeedback(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/feedback/%d/", id), nil, nil, nil)
}
