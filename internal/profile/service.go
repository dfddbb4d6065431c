package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kycportal/internal/audit"
	"kycportal/internal/domain"
	"kycportal/internal/form"
	"kycportal/internal/platform/metrics"
	"kycportal/internal/policy"
	"kycportal/internal/selection"
	"kycportal/internal/session"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
)

// Profiles is the upstream profile API.
type Profiles interface {
	GetProfile(ctx context.Context, userID id.UserID) (*domain.PersonalInfo, error)
	UpdateProfile(ctx context.Context, userID id.UserID, info domain.PersonalInfo) (*domain.PersonalInfo, error)
}

// Session is the part of the session store the profile flow touches.
type Session interface {
	Current() *domain.Identity
	UpdateProfile(ctx context.Context, patch session.ProfilePatch) error
}

// Form is a profile engine bound to the user whose record it edits.
type Form struct {
	*form.Engine
	target id.UserID

	mu     sync.Mutex
	source *domain.PersonalInfo
}

// Target is the user whose profile the form holds.
func (f *Form) Target() id.UserID { return f.target }

func (f *Form) Source() *domain.PersonalInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.source == nil {
		return nil
	}
	cp := f.source.Clone()
	return &cp
}

func (f *Form) setSource(info *domain.PersonalInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := info.Clone()
	f.source = &cp
}

// NewForm builds a profile form for target hydrated from info.
func NewForm(target id.UserID, info *domain.PersonalInfo, email string, readOnly bool, now func() time.Time) *Form {
	opts := []form.Option{form.WithClock(now)}
	if readOnly {
		opts = append(opts, form.ReadOnly())
	}
	f := &Form{
		Engine: form.New(NewSchema(now), Defaults(info, email, now()), opts...),
		target: target,
	}
	if info != nil {
		f.setSource(info)
	}
	return f
}

type Service struct {
	profiles Profiles
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  *audit.Publisher
	now      func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(profiles Profiles, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{profiles: profiles, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load builds the form for target as seen by identity. The signed-in user's
// own record comes from the session; anyone else's is fetched upstream, and
// a missing record yields the empty defaults.
func (s *Service) Load(ctx context.Context, identity domain.Identity, target selection.Target) (*Form, error) {
	readOnly := !policy.CanEditTarget(&identity, target.UserID)

	if target.IsSelf(&identity) && identity.PersonalInfo != nil {
		return NewForm(target.UserID, identity.PersonalInfo, identity.Email, readOnly, s.now), nil
	}

	info, err := s.profiles.GetProfile(ctx, target.UserID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, fmt.Errorf("load profile %s: %w", target.UserID, err)
	}

	email := identity.Email
	if !target.IsSelf(&identity) {
		email = ""
		if target.Client != nil {
			email = target.Client.Email
		}
	}
	return NewForm(target.UserID, info, email, readOnly, s.now), nil
}

// Submit validates the form, saves the record upstream and, when the record
// is the caller's own, refreshes the session identity.
func (s *Service) Submit(ctx context.Context, f *Form, sess Session) (*domain.PersonalInfo, error) {
	identity := sess.Current()
	if identity == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not logged in")
	}
	if !policy.CanEditTarget(identity, f.target) {
		return nil, dErrors.New(dErrors.CodeForbidden, "profile is read-only")
	}

	var saved *domain.PersonalInfo
	err := f.Submit(ctx, func(ctx context.Context, snap form.Snapshot) error {
		info := Build(snap, f.target, f.Source(), s.now())
		out, err := s.profiles.UpdateProfile(ctx, f.target, info)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if out == nil {
			out = &info
		}
		name := out.FullName()
		if err := sess.UpdateProfile(ctx, session.ProfilePatch{Name: &name, PersonalInfo: out}); err != nil {
			return fmt.Errorf("refresh session profile: %w", err)
		}
		f.setSource(out)
		saved = out
		return nil
	})
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			s.metrics.IncrementFormSubmit(FormName, "invalid")
		} else {
			s.metrics.IncrementFormSubmit(FormName, "error")
			s.logger.ErrorContext(ctx, "profile submit failed", "user_id", string(f.target), "error", err)
		}
		return nil, err
	}

	s.metrics.IncrementFormSubmit(FormName, "success")
	_ = s.auditor.Emit(ctx, audit.Event{
		UserID:  f.target,
		ActorID: identity.ID,
		Action:  audit.ActionProfileUpdated,
	})
	s.logger.InfoContext(ctx, "profile updated", "user_id", string(f.target))
	return saved, nil
}
