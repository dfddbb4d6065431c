// Package web is the portal's HTTP surface. Every page is a JSON document;
// navigation gates answer with 303 redirects.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycportal/internal/audit"
	"kycportal/internal/auth"
	"kycportal/internal/domain"
	"kycportal/internal/guard"
	"kycportal/internal/kyc"
	"kycportal/internal/platform/metrics"
	"kycportal/internal/platform/middleware"
	"kycportal/internal/policy"
	"kycportal/internal/profile"
	"kycportal/internal/review"
	"kycportal/internal/transport/apiclient"
	"kycportal/internal/workspace"
	"kycportal/pkg/platform/httputil"
	"kycportal/pkg/requestcontext"
)

type Handler struct {
	registry     *workspace.Registry
	auth         *auth.Service
	guard        *guard.Guard
	logger       *slog.Logger
	metrics      *metrics.Metrics
	auditor      *audit.Publisher
	activity     audit.Reader
	limiter      *middleware.KeyedLimiter
	cookieSecure bool
	cookieTTL    time.Duration
	now          func() time.Time
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithAuditor publishes audit events through p. A non-nil reader also
// enables the /activity page.
func WithAuditor(p *audit.Publisher, reader audit.Reader) Option {
	return func(h *Handler) {
		h.auditor = p
		h.activity = reader
	}
}

// WithLoginLimiter throttles POST /login per client IP.
func WithLoginLimiter(l *middleware.KeyedLimiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithCookie sets the Secure flag and lifetime of the workspace cookie.
func WithCookie(secure bool, ttl time.Duration) Option {
	return func(h *Handler) {
		h.cookieSecure = secure
		h.cookieTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func New(registry *workspace.Registry, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		registry:  registry,
		logger:    logger,
		cookieTTL: 24 * time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.auth = auth.New(logger, auth.WithMetrics(h.metrics), auth.WithAuditor(h.auditor))
	h.guard = guard.New(func(r *http.Request) *domain.Identity {
		return workspaceFrom(r.Context()).Session.Current()
	}, logger, guard.WithMetrics(h.metrics))
	return h
}

// Register mounts every page on r. Unknown paths redirect to the login page.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(h.loadWorkspace)

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			guard.WriteRedirect(w, "/landing")
		})
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.guard.PublicOnly)
			r.Get("/login", h.handleLoginPage)
			r.With(h.throttle).Post("/login", h.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireSession)
			r.Get("/landing", h.handleLanding)
			r.Get("/activity", h.handleActivity)
			r.Post("/session/refresh", h.handleRefresh)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.guard.RequireSession)
				h.formRoutes(r, h.profilePage())
			})
			r.Route("/{userID}", func(r chi.Router) {
				r.Use(h.guard.RequireRole(domain.RoleOfficer))
				h.formRoutes(r, h.profilePage())
			})
		})
		r.Route("/kyc", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.guard.RequireSession)
				h.formRoutes(r, h.kycPage())
			})
			r.Route("/{userID}", func(r chi.Router) {
				r.Use(h.guard.RequireRole(domain.RoleOfficer))
				h.formRoutes(r, h.kycPage())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireRole(domain.RoleOfficer))
			r.Get("/clients", h.handleClients)
			r.Post("/clients/{userID}/select", h.handleSelectClient)
			r.Delete("/clients/selection", h.handleClearSelection)
			r.Get("/review", h.handlePendingReviews)
			r.Get("/review/{userID}", h.handleReviewDetail)
			r.Post("/review/{userID}", h.handleSubmitReview)
			r.Get("/results", h.handleResults)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		guard.WriteRedirect(w, policy.PathLogin)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) throttle(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return middleware.Throttle(h.limiter, h.metrics, h.logger, func(r *http.Request) {
		_ = h.auditor.Emit(r.Context(), audit.Event{Action: audit.ActionLoginThrottled})
	})(next)
}

func (h *Handler) profileService(ws *workspace.Workspace) *profile.Service {
	return profile.New(ws.Services.Profiles, h.logger,
		profile.WithMetrics(h.metrics),
		profile.WithAuditor(h.auditor),
		profile.WithClock(h.now),
	)
}

func (h *Handler) kycService(ws *workspace.Workspace) *kyc.Service {
	return kyc.New(ws.Services.KYC, h.logger,
		kyc.WithMetrics(h.metrics),
		kyc.WithAuditor(h.auditor),
	)
}

func (h *Handler) reviewService(ws *workspace.Workspace) *review.Service {
	return review.New(ws.Services.Clients, ws.Services.Reviews, ws.Services.KYC, h.logger,
		review.WithMetrics(h.metrics),
		review.WithAuditor(h.auditor),
	)
}

// fail writes err. An upstream-rejected token has already cleared the
// session; the workspace forgets its forms and selection too.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, apiclient.ErrSessionExpired) {
		ws := workspaceFrom(ctx)
		ws.Reset()
		_ = h.auditor.Emit(ctx, audit.Event{UserID: requestcontext.UserID(ctx), Action: audit.ActionSessionExpired})
		h.logger.InfoContext(ctx, "session expired", "workspace_id", ws.ID.String())
	}
	httputil.WriteError(w, err)
}
