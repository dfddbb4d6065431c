// Package selection tracks which client an officer is looking at. The
// selection is a navigation hint, not a cache: pages always resolve their
// target from the route first and re-fetch the record.
package selection

import (
	"context"
	"log/slog"
	"sync"

	"kycportal/internal/domain"
	id "kycportal/pkg/domain"
)

// Store holds at most one selected client.
type Store struct {
	mu       sync.RWMutex
	selected *domain.Client
	logger   *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{logger: logger}
}

// Select replaces the current selection unconditionally.
func (s *Store) Select(client domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := client
	s.selected = &c
}

// Clear drops the selection.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// Selected returns a copy of the selection.
func (s *Store) Selected() (domain.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return domain.Client{}, false
	}
	return *s.selected, true
}

// Source names where a resolved target came from.
type Source string

const (
	SourceRoute     Source = "route"
	SourceSelection Source = "selection"
	SourceSelf      Source = "self"
)

// Target is the record owner a page should bind to.
type Target struct {
	UserID id.UserID
	Source Source
	// Client is set when the selection matched the target.
	Client *domain.Client
}

// IsSelf reports whether the target is the authenticated identity.
func (t Target) IsSelf(identity *domain.Identity) bool {
	return identity != nil && t.UserID == identity.ID
}

// ResolveTarget picks the record owner for a profile or KYC page: the route
// parameter when present, else the selection, else the identity itself. A
// selection that disagrees with the route parameter is ignored.
func (s *Store) ResolveTarget(ctx context.Context, identity domain.Identity, routeUserID id.UserID) Target {
	sel, hasSel := s.Selected()

	if !routeUserID.IsZero() {
		t := Target{UserID: routeUserID, Source: SourceRoute}
		if hasSel {
			if sel.ID == routeUserID {
				t.Client = &sel
			} else {
				s.logger.DebugContext(ctx, "selection does not match route, ignoring",
					"selected_id", sel.ID.String(),
					"route_id", routeUserID.String(),
				)
			}
		}
		return t
	}

	if hasSel && identity.IsOfficer() {
		return Target{UserID: sel.ID, Source: SourceSelection, Client: &sel}
	}
	return Target{UserID: identity.ID, Source: SourceSelf}
}
