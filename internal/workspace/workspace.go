// Package workspace holds the per-browser state of the portal: one session,
// one client selection and the live profile and KYC forms.
package workspace

import (
	"sync"
	"time"

	"kycportal/internal/auth"
	"kycportal/internal/kyc"
	"kycportal/internal/profile"
	"kycportal/internal/selection"
	"kycportal/internal/services"
	"kycportal/internal/session"
	id "kycportal/pkg/domain"
)

// Workspace is the state of one browser. Mutating requests hold Lock for
// their whole duration; reads may run alongside and use the generation to
// avoid installing results that a newer write made stale.
type Workspace struct {
	ID        id.WorkspaceID
	Session   *session.Store
	Selection *selection.Store
	Services  *services.Services
	Auth      auth.Authenticator

	writer sync.Mutex

	mu         sync.Mutex
	generation uint64
	lastSeen   time.Time
	profile    *profile.Form
	kyc        *kyc.Form
}

func (w *Workspace) Lock()   { w.writer.Lock() }
func (w *Workspace) Unlock() { w.writer.Unlock() }

// Generation changes whenever cached forms are invalidated.
func (w *Workspace) Generation() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

// Invalidate drops both forms and bumps the generation. It runs on login,
// logout and selection changes.
func (w *Workspace) Invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	w.profile = nil
	w.kyc = nil
}

// Reset is Invalidate plus clearing the client selection.
func (w *Workspace) Reset() {
	w.Selection.Clear()
	w.Invalidate()
}

// ProfileForm returns the cached profile form if it is bound to target.
func (w *Workspace) ProfileForm(target id.UserID) *profile.Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.profile == nil || w.profile.Target() != target {
		return nil
	}
	return w.profile
}

// PutProfileForm caches f unless the workspace moved past gen meanwhile.
func (w *Workspace) PutProfileForm(gen uint64, f *profile.Form) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		return false
	}
	w.profile = f
	return true
}

func (w *Workspace) KYCForm(target id.UserID) *kyc.Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.kyc == nil || w.kyc.Target() != target {
		return nil
	}
	return w.kyc
}

func (w *Workspace) PutKYCForm(gen uint64, f *kyc.Form) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		return false
	}
	w.kyc = f
	return true
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince(cutoff time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen.Before(cutoff)
}
