// Package review is the officer side of KYC: the pending queue, the
// approve/reject decision and the results table.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"kycportal/internal/audit"
	"kycportal/internal/domain"
	"kycportal/internal/platform/metrics"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
)

const FormName = "review"

type Clients interface {
	GetAllClients(ctx context.Context) ([]domain.Client, error)
	GetClientByID(ctx context.Context, clientID id.UserID) (*domain.Client, error)
}

type Reviews interface {
	SubmitReview(ctx context.Context, req domain.ReviewRequest) (*domain.Review, error)
	GetAllReviews(ctx context.Context) ([]domain.Review, error)
	GetReviewsByUserID(ctx context.Context, userID id.UserID) ([]domain.Review, error)
}

type Submissions interface {
	GetKYCByUserID(ctx context.Context, userID id.UserID) (*domain.KYCData, error)
}

// Decision is the officer's verdict on one client.
type Decision struct {
	Status   domain.ReviewStatus `json:"status"`
	Comments string              `json:"comments"`
}

// Detail is everything an officer sees when reviewing one client.
type Detail struct {
	Client   domain.Client    `json:"client"`
	KYC      *domain.KYCData  `json:"kyc,omitempty"`
	NetWorth *decimal.Decimal `json:"netWorth,omitempty"`
	History  []domain.Review  `json:"history"`
}

// Result is one row of the results table.
type Result struct {
	ReviewID   id.ReviewID         `json:"reviewId"`
	UserID     id.UserID           `json:"userId"`
	Name       string              `json:"name"`
	Status     domain.ReviewStatus `json:"status"`
	ReviewedAt time.Time           `json:"reviewedAt"`
}

type Service struct {
	clients     Clients
	reviews     Reviews
	submissions Submissions
	logger      *slog.Logger
	metrics     *metrics.Metrics
	auditor     *audit.Publisher
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func New(clients Clients, reviews Reviews, submissions Submissions, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{clients: clients, reviews: reviews, submissions: submissions, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending lists clients whose KYC awaits a decision, oldest update first.
func (s *Service) Pending(ctx context.Context) ([]domain.Client, error) {
	all, err := s.clients.GetAllClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	pending := domain.FilterByStatus(all, domain.KYCPending)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].LastUpdated.Before(pending[j].LastUpdated)
	})
	return pending, nil
}

// Detail loads the client, its submission (absent when never submitted) and
// past decisions.
func (s *Service) Detail(ctx context.Context, userID id.UserID) (*Detail, error) {
	client, err := s.clients.GetClientByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", userID, err)
	}
	out := &Detail{Client: *client}

	data, err := s.submissions.GetKYCByUserID(ctx, userID)
	switch {
	case err == nil:
		out.KYC = data
		nw := data.NetWorth()
		out.NetWorth = &nw
	case !dErrors.HasCode(err, dErrors.CodeNotFound):
		return nil, fmt.Errorf("load kyc %s: %w", userID, err)
	}

	history, err := s.reviews.GetReviewsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load reviews %s: %w", userID, err)
	}
	out.History = history
	return out, nil
}

// Decide records officer's decision on userID's submission. Empty comments
// default to the decision name.
func (s *Service) Decide(ctx context.Context, officer *domain.Identity, userID id.UserID, d Decision) (*domain.Review, error) {
	if officer == nil || !officer.IsOfficer() {
		return nil, dErrors.New(dErrors.CodeForbidden, "officer role required")
	}
	if !d.Status.IsValid() {
		s.metrics.IncrementFormSubmit(FormName, "invalid")
		return nil, &InvalidDecisionError{Status: string(d.Status)}
	}
	comments := strings.TrimSpace(d.Comments)
	if comments == "" {
		comments = defaultComment(d.Status)
	}

	out, err := s.reviews.SubmitReview(ctx, domain.ReviewRequest{
		UserID:     userID,
		KYCID:      domain.KYCIDFor(userID),
		ReviewerID: officer.ID,
		Status:     d.Status,
		Comments:   comments,
	})
	if err != nil {
		s.metrics.IncrementFormSubmit(FormName, "error")
		s.logger.ErrorContext(ctx, "review submit failed", "user_id", string(userID), "error", err)
		return nil, fmt.Errorf("submit review: %w", err)
	}

	s.metrics.IncrementFormSubmit(FormName, "success")
	_ = s.auditor.Emit(ctx, audit.Event{
		UserID:   userID,
		ActorID:  officer.ID,
		Action:   audit.ActionReviewSubmitted,
		Subject:  string(domain.KYCIDFor(userID)),
		Decision: string(d.Status),
	})
	s.logger.InfoContext(ctx, "review submitted",
		"user_id", string(userID),
		"reviewer_id", string(officer.ID),
		"decision", d.Status,
	)
	return out, nil
}

func defaultComment(status domain.ReviewStatus) string {
	if status == domain.ReviewApproved {
		return "Approved"
	}
	return "Rejected"
}

// Results joins every review with its client's name, fetching both lists
// concurrently. Reviews of unknown clients show the user id as the name.
func (s *Service) Results(ctx context.Context) ([]Result, error) {
	var (
		clients []domain.Client
		reviews []domain.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = s.clients.GetAllClients(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = s.reviews.GetAllReviews(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	names := make(map[id.UserID]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	out := make([]Result, 0, len(reviews))
	for _, r := range reviews {
		name, ok := names[r.UserID]
		if !ok {
			name = string(r.UserID)
		}
		out = append(out, Result{
			ReviewID:   r.ID,
			UserID:     r.UserID,
			Name:       name,
			Status:     r.Status,
			ReviewedAt: r.ReviewedAt,
		})
	}
	return out, nil
}

// InvalidDecisionError is returned for a status other than approved or
// rejected.
type InvalidDecisionError struct {
	Status string
}

func (e *InvalidDecisionError) Error() string {
	return fmt.Sprintf("invalid review status %q", e.Status)
}

func (e *InvalidDecisionError) FieldErrors() map[string]string {
	return map[string]string{"status": "Status must be approved or rejected"}
}

func (e *InvalidDecisionError) Unwrap() error {
	return dErrors.New(dErrors.CodeValidation, "invalid review decision")
}
