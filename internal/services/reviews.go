package services

import (
	"context"
	"net/http"
	"net/url"

	"kycportal/internal/domain"
	"kycportal/internal/transport/apiclient"
	id "kycportal/pkg/domain"
)

type Reviews struct {
	api  Caller
	sess apiclient.Session
}

func (r *Reviews) SubmitReview(ctx context.Context, req domain.ReviewRequest) (*domain.Review, error) {
	var out domain.Review
	if err := r.api.Do(ctx, r.sess, apiclient.Request{Method: http.MethodPost, Path: "/reviews", Body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Reviews) GetAllReviews(ctx context.Context) ([]domain.Review, error) {
	var out []domain.Review
	if err := r.api.Do(ctx, r.sess, apiclient.Request{Method: http.MethodGet, Path: "/reviews"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Reviews) GetReviewsByUserID(ctx context.Context, userID id.UserID) ([]domain.Review, error) {
	var out []domain.Review
	err := r.api.Do(ctx, r.sess, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/reviews/user/" + url.PathEscape(string(userID)),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
