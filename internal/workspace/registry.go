package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kycportal/internal/auth"
	"kycportal/internal/platform/metrics"
	"kycportal/internal/selection"
	"kycportal/internal/services"
	"kycportal/internal/session"
	id "kycportal/pkg/domain"
)

// AuthenticatorFactory builds the authenticator of a new workspace. The
// default is the upstream auth service of the workspace's bundle.
type AuthenticatorFactory func(sess *session.Store, svc *services.Services) auth.Authenticator

func remoteAuthenticator(_ *session.Store, svc *services.Services) auth.Authenticator {
	return svc.Auth
}

// Registry owns every workspace known to this process.
type Registry struct {
	mu         sync.Mutex
	workspaces map[id.WorkspaceID]*Workspace

	persister session.Persister
	api       services.Caller
	authn     AuthenticatorFactory
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Registry)

func WithAuthenticator(f AuthenticatorFactory) Option {
	return func(r *Registry) { r.authn = f }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(persister session.Persister, api services.Caller, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		workspaces: make(map[id.WorkspaceID]*Workspace),
		persister:  persister,
		api:        api,
		authn:      remoteAuthenticator,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the workspace for wsID, creating it on first sight. A new
// workspace rehydrates its session from the persister before it is used.
func (r *Registry) Get(ctx context.Context, wsID id.WorkspaceID) (*Workspace, error) {
	r.mu.Lock()
	ws, ok := r.workspaces[wsID]
	if !ok {
		ws = r.build(wsID)
		r.workspaces[wsID] = ws
		r.metrics.SetActiveWorkspaces(len(r.workspaces))
	}
	r.mu.Unlock()

	ws.touch(r.now())
	if err := ws.Session.Rehydrate(ctx); err != nil {
		return nil, fmt.Errorf("rehydrate workspace %s: %w", wsID, err)
	}
	return ws, nil
}

func (r *Registry) build(wsID id.WorkspaceID) *Workspace {
	sess := session.NewStore(wsID, r.persister, session.WithLogger(r.logger))
	svc := services.New(r.api, sess)
	return &Workspace{
		ID:        wsID,
		Session:   sess,
		Selection: selection.NewStore(r.logger),
		Services:  svc,
		Auth:      r.authn(sess, svc),
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep forgets workspaces idle for longer than idle. Their persisted
// sessions survive and are rehydrated if the browser comes back.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for wsID, ws := range r.workspaces {
		if ws.idleSince(cutoff) {
			delete(r.workspaces, wsID)
			removed++
		}
	}
	r.metrics.SetActiveWorkspaces(len(r.workspaces))
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.InfoContext(ctx, "swept idle workspaces", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
