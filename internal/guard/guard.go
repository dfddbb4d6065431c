// Package guard applies the authorization policy on every navigation.
// A failed check is always a redirect to somewhere navigable, never an
// error page.
package guard

import (
	"log/slog"
	"net/http"

	"kycportal/internal/domain"
	"kycportal/internal/platform/metrics"
	"kycportal/internal/policy"
	"kycportal/pkg/platform/httputil"
	"kycportal/pkg/requestcontext"
)

// Public gates pages for anonymous visitors (login). Authenticated
// identities are sent to their role's home.
func Public(identity *domain.Identity) policy.Decision {
	if identity != nil {
		return policy.Decision{
			Kind:   policy.Redirect,
			Path:   policy.HomeFor(identity.Role),
			Reason: policy.ReasonAlreadyLoggedIn,
		}
	}
	return policy.Decision{Kind: policy.Allow}
}

// Protected gates pages that need a session and optionally a role.
func Protected(identity *domain.Identity, requiredRole *domain.Role) policy.Decision {
	return policy.RouteDecision(identity, requiredRole)
}

// IdentityFunc resolves the current identity for a request, nil when the
// request has no authenticated session.
type IdentityFunc func(r *http.Request) *domain.Identity

// Guard builds gate middleware around an identity resolver.
type Guard struct {
	identity IdentityFunc
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Guard)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func New(identity IdentityFunc, logger *slog.Logger, opts ...Option) *Guard {
	g := &Guard{identity: identity, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PublicOnly wraps login-style pages.
func (g *Guard) PublicOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.apply(w, r, next, Public(g.identity(r)))
	})
}

// RequireSession wraps pages open to any authenticated role.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.apply(w, r, next, Protected(g.identity(r), nil))
	})
}

// RequireRole wraps pages restricted to role.
func (g *Guard) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	required := policy.RequireRole(role)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.apply(w, r, next, Protected(g.identity(r), required))
		})
	}
}

func (g *Guard) apply(w http.ResponseWriter, r *http.Request, next http.Handler, d policy.Decision) {
	if d.Allowed() {
		next.ServeHTTP(w, r)
		return
	}
	ctx := r.Context()
	g.metrics.IncrementGuardRedirect(d.Reason)
	g.logger.DebugContext(ctx, "navigation redirected",
		"from", r.URL.Path,
		"to", d.Path,
		"reason", d.Reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	WriteRedirect(w, d.Path)
}

// WriteRedirect sends a 303 to path with a small JSON body for API clients.
func WriteRedirect(w http.ResponseWriter, path string) {
	w.Header().Set("Location", path)
	httputil.WriteJSON(w, http.StatusSeeOther, map[string]string{"redirect": path})
}
