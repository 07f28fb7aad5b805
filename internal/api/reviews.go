package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type reviewEnvelope struct {
	Review Review `json:"review"`
}

type reviewsEnvelope struct {
	Reviews []Review `json:"reviews"`
}

// SubmitReview leaves a review for a completed appointment. The backend
// enforces that the viewer is the attached customer and no review exists yet.
func (c *Client) SubmitReview(ctx context.Context, appointmentID int64, rating int, content string) (Review, error) {
	if rating < 1 || rating > 5 {
		return Review{}, errors.New("api: rating must be between 1 and 5")
	}
	if strings.TrimSpace(content) == "" {
		return Review{}, errors.New("api: review content required")
	}
	body := map[string]map[string]any{
		"review": {"rating": rating, "content": content},
	}
	data, _, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/appointments/%d/review", appointmentID), nil, body, transitionKind)
	if err != nil {
		return Review{}, err
	}
	var envelope reviewEnvelope
	if err := decodeInto("review", data, &envelope); err != nil {
		return Review{}, err
	}
	return envelope.Review, nil
}

// StylistReviews lists published reviews for a stylist.
func (c *Client) StylistReviews(ctx context.Context, stylistID int64) ([]Review, error) {
	q := url.Values{}
	q.Set("stylist_id", strconv.FormatInt(stylistID, 10))
	var envelope reviewsEnvelope
	if err := c.get(ctx, "/reviews", q, &envelope); err != nil {
		return nil, err
	}
	return envelope.Reviews, nil
}
