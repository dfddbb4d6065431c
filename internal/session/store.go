// Package session holds "who is logged in" for one browser workspace and
// keeps it in sync with a durable Persister.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"kycportal/internal/domain"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
	"kycportal/pkg/platform/sentinel"
	"kycportal/pkg/requestcontext"
)

// Persister stores one combined session record per workspace.
// Load returns sentinel.ErrNotFound when nothing is stored.
type Persister interface {
	Load(ctx context.Context, ws id.WorkspaceID) (*Record, error)
	Save(ctx context.Context, ws id.WorkspaceID, rec Record) error
	Delete(ctx context.Context, ws id.WorkspaceID) error
}

// ProfilePatch is a partial update of the current identity. Nil fields are
// left untouched.
type ProfilePatch struct {
	Name         *string
	Email        *string
	PersonalInfo *domain.PersonalInfo
}

// Store is the single source of truth for the authenticated identity of a
// workspace. All mutations hold the lock across both the in-memory change
// and the persister write.
type Store struct {
	mu        sync.RWMutex
	workspace id.WorkspaceID
	persister Persister
	logger    *slog.Logger

	record   *Record
	hydrated bool
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(ws id.WorkspaceID, persister Persister, opts ...Option) *Store {
	s := &Store{
		workspace: ws,
		persister: persister,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rehydrate restores the persisted record. Only the first call reads the
// persister; later calls return immediately.
func (s *Store) Rehydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated {
		return nil
	}

	rec, err := s.persister.Load(ctx, s.workspace)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		s.hydrated = true
		return nil
	case errors.Is(err, ErrCorruptRecord):
		s.logger.WarnContext(ctx, "discarding unreadable session record",
			"workspace_id", s.workspace.String(),
			"error", err,
		)
		s.hydrated = true
		return s.persister.Delete(ctx, s.workspace)
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to restore session")
	}

	if rec.Token != "" {
		s.record = rec
	}
	s.hydrated = true
	return nil
}

// Login replaces any current session with identity and token.
func (s *Store) Login(ctx context.Context, identity domain.Identity, token string) error {
	if strings.TrimSpace(token) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "token is required")
	}
	if identity.ID.IsZero() || !identity.Role.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "identity must carry an id and a known role")
	}

	rec := Record{
		Token:      token,
		Identity:   identity.Clone(),
		Device:     DeviceLabel(requestcontext.UserAgent(ctx)),
		LoggedInAt: requestcontext.Now(ctx),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persister.Save(ctx, s.workspace, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist session")
	}
	s.record = &rec
	s.hydrated = true
	return nil
}

// Logout clears identity, token and the persisted record. Calling it on an
// already cleared store is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil && s.hydrated {
		return nil
	}
	if err := s.persister.Delete(ctx, s.workspace); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to clear session")
	}
	s.record = nil
	s.hydrated = true
	return nil
}

// UpdateProfile merges patch into the current identity. It does nothing when
// no one is logged in. Personal info owned by another user is refused.
func (s *Store) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil
	}

	next := *s.record
	next.Identity = s.record.Identity.Clone()
	if patch.PersonalInfo != nil {
		if !patch.PersonalInfo.UserID.IsZero() && patch.PersonalInfo.UserID != next.Identity.ID {
			return dErrors.New(dErrors.CodeForbidden, "profile belongs to another user")
		}
		pi := patch.PersonalInfo.Clone()
		pi.UserID = next.Identity.ID
		next.Identity.PersonalInfo = &pi
	}
	if patch.Name != nil {
		next.Identity.Name = *patch.Name
	}
	if patch.Email != nil {
		next.Identity.Email = *patch.Email
	}

	if err := s.persister.Save(ctx, s.workspace, next); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist profile update")
	}
	s.record = &next
	return nil
}

// IsAuthenticated is true while a token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record != nil && s.record.Token != ""
}

// Current returns a copy of the identity, or nil when logged out.
func (s *Store) Current() *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return nil
	}
	identity := s.record.Identity.Clone()
	return &identity
}

// Token returns the bearer token, empty when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return ""
	}
	return s.record.Token
}

// Device returns the label of the device that logged in.
func (s *Store) Device() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return ""
	}
	return s.record.Device
}
