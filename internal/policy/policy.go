// Package policy derives what an identity may do and where it may go.
// Every function is pure: same inputs, same answer, no side effects.
package policy

import (
	"kycportal/internal/domain"
	id "kycportal/pkg/domain"
)

const (
	PathLogin   = "/login"
	PathClients = "/clients"
	PathProfile = "/profile"
)

// Capabilities is the role-derived permission set shown to pages.
type Capabilities struct {
	CanViewClientList    bool `json:"canViewClientList"`
	CanReview            bool `json:"canReview"`
	CanEditOwnProfile    bool `json:"canEditOwnProfile"`
	CanEditOthersProfile bool `json:"canEditOthersProfile"`
}

// CapabilitiesFor returns the permission set of identity. A nil identity
// (unauthenticated) has none.
func CapabilitiesFor(identity *domain.Identity) Capabilities {
	if identity == nil {
		return Capabilities{}
	}
	switch identity.Role {
	case domain.RoleOfficer:
		return Capabilities{
			CanViewClientList: true,
			CanReview:         true,
			CanEditOwnProfile: true,
		}
	case domain.RoleNormalUser:
		return Capabilities{CanEditOwnProfile: true}
	default:
		return Capabilities{}
	}
}

// DecisionKind is the outcome of a route check.
type DecisionKind string

const (
	Allow    DecisionKind = "ALLOW"
	Redirect DecisionKind = "REDIRECT"
)

// Decision is ALLOW or REDIRECT(Path).
type Decision struct {
	Kind DecisionKind
	Path string
	// Reason labels redirects for logs and metrics.
	Reason string
}

func (d Decision) Allowed() bool { return d.Kind == Allow }

const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonRoleMismatch    = "role_mismatch"
	ReasonAlreadyLoggedIn = "already_authenticated"
)

func allow() Decision { return Decision{Kind: Allow} }

func redirect(path, reason string) Decision {
	return Decision{Kind: Redirect, Path: path, Reason: reason}
}

// RouteDecision decides access to a route that optionally requires a role.
// Unauthenticated identities go to login; a role mismatch goes to the
// identity's own home, never to login.
func RouteDecision(identity *domain.Identity, requiredRole *domain.Role) Decision {
	if identity == nil {
		return redirect(PathLogin, ReasonUnauthenticated)
	}
	if requiredRole != nil && identity.Role != *requiredRole {
		return redirect(HomeFor(identity.Role), ReasonRoleMismatch)
	}
	return allow()
}

// HomeFor is the landing route of a role. Unknown roles are sent to login.
func HomeFor(role domain.Role) string {
	switch role {
	case domain.RoleOfficer:
		return PathClients
	case domain.RoleNormalUser:
		return PathProfile
	default:
		return PathLogin
	}
}

// RequireRole is a convenience for building the optional role argument.
func RequireRole(role domain.Role) *domain.Role {
	return &role
}

// CanEditTarget reports whether identity may edit the record owned by
// target. Only the owner edits, officers included; compute it per request
// from the route target and never cache it.
func CanEditTarget(identity *domain.Identity, target id.UserID) bool {
	if identity == nil || target.IsZero() {
		return false
	}
	return identity.ID == target
}

// CanViewTarget reports whether identity may see target's records.
func CanViewTarget(identity *domain.Identity, target id.UserID) bool {
	if identity == nil {
		return false
	}
	return identity.ID == target || CapabilitiesFor(identity).CanViewClientList
}
