// Package auth runs the login and logout flows against a pluggable
// Authenticator and keeps the workspace session in step.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kycportal/internal/audit"
	"kycportal/internal/domain"
	"kycportal/internal/form"
	"kycportal/internal/platform/metrics"
	"kycportal/internal/services"
	dErrors "kycportal/pkg/domain-errors"
)

// Authenticator is the auth backend. services.Auth talks to the upstream;
// the mock API offers an in-process one.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*services.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.Identity, error)
	RefreshToken(ctx context.Context) (string, error)
}

// Session is the part of the session store the auth flows touch.
type Session interface {
	Login(ctx context.Context, identity domain.Identity, token string) error
	Logout(ctx context.Context) error
	Current() *domain.Identity
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *audit.Publisher
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func New(logger *slog.Logger, opts ...Option) *Service {
	s := &Service{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login validates creds locally, authenticates and stores the result in
// sess. Invalid input never reaches the authenticator.
func (s *Service) Login(ctx context.Context, authn Authenticator, sess Session, creds Credentials) (*domain.Identity, error) {
	email := strings.TrimSpace(creds.Email)
	f := form.New(NewSchema(), form.Defaults{})
	if err := f.SetField("email", email); err != nil {
		return nil, err
	}
	if err := f.SetField("password", creds.Password); err != nil {
		return nil, err
	}

	var identity domain.Identity
	err := f.Submit(ctx, func(ctx context.Context, snap form.Snapshot) error {
		res, err := authn.Login(ctx, snap.String("email"), snap.String("password"))
		if err != nil {
			return err
		}
		if !res.User.Role.IsValid() || res.Token == "" {
			return dErrors.New(dErrors.CodeUnauthorized, "authentication returned no usable identity")
		}
		if err := sess.Login(ctx, res.User, res.Token); err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		identity = res.User.Clone()
		return nil
	})
	if err != nil {
		s.loginFailed(ctx, email, err)
		return nil, err
	}

	s.metrics.IncrementLogins()
	_ = s.auditor.Emit(ctx, audit.Event{
		UserID:  identity.ID,
		Action:  audit.ActionLoginSucceeded,
		Subject: identity.Email,
	})
	s.logger.InfoContext(ctx, "user logged in", "user_id", string(identity.ID), "role", identity.Role)
	return &identity, nil
}

func (s *Service) loginFailed(ctx context.Context, email string, err error) {
	reason := "upstream"
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		reason = "validation"
	case dErrors.HasCode(err, dErrors.CodeUnauthorized):
		reason = "invalid_credentials"
	}
	s.metrics.IncrementLoginFailure(reason)
	if reason == "validation" {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionLoginFailed,
		Subject: email,
		Reason:  reason,
	})
	s.logger.WarnContext(ctx, "login failed", "reason", reason, "error", err)
}

// Logout ends the session. The upstream call is best effort; the local
// session is cleared regardless, and logging out twice equals once.
func (s *Service) Logout(ctx context.Context, authn Authenticator, sess Session) error {
	identity := sess.Current()
	if identity == nil {
		return sess.Logout(ctx)
	}
	if err := authn.Logout(ctx); err != nil {
		s.logger.WarnContext(ctx, "upstream logout failed", "user_id", string(identity.ID), "error", err)
	}
	if err := sess.Logout(ctx); err != nil {
		return err
	}
	s.metrics.IncrementLogouts()
	_ = s.auditor.Emit(ctx, audit.Event{UserID: identity.ID, Action: audit.ActionLoggedOut})
	s.logger.InfoContext(ctx, "user logged out", "user_id", string(identity.ID))
	return nil
}

// Refresh swaps the session token for a fresh one and re-reads the
// identity. A rejected token ends the session.
func (s *Service) Refresh(ctx context.Context, authn Authenticator, sess Session) (*domain.Identity, error) {
	current := sess.Current()
	if current == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not logged in")
	}
	token, err := authn.RefreshToken(ctx)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			if logoutErr := sess.Logout(ctx); logoutErr != nil {
				s.logger.ErrorContext(ctx, "failed to clear rejected session", "error", logoutErr)
			}
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	// the old token is revoked by rotation, so the identity is re-read with the new one
	if err := sess.Login(ctx, *current, token); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	identity, err := authn.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload identity: %w", err)
	}
	// keep the locally edited profile; the auth backend may lag behind it
	if current.ID == identity.ID && current.PersonalInfo != nil {
		identity.Name = current.Name
		identity.PersonalInfo = current.PersonalInfo
	}
	if err := sess.Login(ctx, *identity, token); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return identity, nil
}
