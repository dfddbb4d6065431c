package kyc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kycportal/internal/audit"
	"kycportal/internal/domain"
	"kycportal/internal/form"
	"kycportal/internal/platform/metrics"
	"kycportal/internal/policy"
	"kycportal/internal/selection"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
)

// Submissions is the upstream KYC API.
type Submissions interface {
	GetKYCByUserID(ctx context.Context, userID id.UserID) (*domain.KYCData, error)
	SubmitKYC(ctx context.Context, snapshot domain.KYCSnapshot) (*domain.KYCData, error)
}

// Form is a KYC engine bound to the user it describes.
type Form struct {
	*form.Engine
	target id.UserID
}

func (f *Form) Target() id.UserID { return f.target }

// NewForm builds a KYC form for target hydrated from existing.
func NewForm(target id.UserID, existing *domain.KYCData, readOnly bool, opts ...form.Option) *Form {
	if readOnly {
		opts = append(opts, form.ReadOnly())
	}
	return &Form{Engine: form.New(NewSchema(), Defaults(existing), opts...), target: target}
}

// ReadOnlyFor reports whether identity may only view target's questionnaire.
// Officers never fill one in; users only fill in their own.
func ReadOnlyFor(identity *domain.Identity, target id.UserID) bool {
	return identity == nil || identity.IsOfficer() || !policy.CanEditTarget(identity, target)
}

type Service struct {
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

func New(submissions Submissions, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{submissions: submissions, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches target's latest submission, if any, and builds the form.
func (s *Service) Load(ctx context.Context, identity domain.Identity, target selection.Target) (*Form, error) {
	existing, err := s.submissions.GetKYCByUserID(ctx, target.UserID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, fmt.Errorf("load kyc %s: %w", target.UserID, err)
	}
	return NewForm(target.UserID, existing, ReadOnlyFor(&identity, target.UserID)), nil
}

// Submit validates the questionnaire and sends it upstream.
func (s *Service) Submit(ctx context.Context, f *Form, identity *domain.Identity) (*domain.KYCData, error) {
	if identity == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not logged in")
	}
	if ReadOnlyFor(identity, f.target) {
		return nil, dErrors.New(dErrors.CodeForbidden, "kyc form is read-only")
	}

	var saved *domain.KYCData
	err := f.Submit(ctx, func(ctx context.Context, snap form.Snapshot) error {
		out, err := s.submissions.SubmitKYC(ctx, Build(snap, f.target))
		if err != nil {
			return fmt.Errorf("submit kyc: %w", err)
		}
		saved = out
		return nil
	})
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			s.metrics.IncrementFormSubmit(FormName, "invalid")
		} else {
			s.metrics.IncrementFormSubmit(FormName, "error")
			s.logger.ErrorContext(ctx, "kyc submit failed", "user_id", string(f.target), "error", err)
		}
		return nil, err
	}

	s.metrics.IncrementFormSubmit(FormName, "success")
	_ = s.auditor.Emit(ctx, audit.Event{
		UserID:  f.target,
		ActorID: identity.ID,
		Action:  audit.ActionKYCSubmitted,
	})
	s.logger.InfoContext(ctx, "kyc submitted", "user_id", string(f.target))
	return saved, nil
}
