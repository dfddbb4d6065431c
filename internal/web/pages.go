package web

import (
	"errors"
	"net/http"
	"strconv"

	"kycportal/internal/audit"
	"kycportal/internal/auth"
	"kycportal/internal/domain"
	"kycportal/internal/form"
	"kycportal/internal/guard"
	"kycportal/internal/policy"
	"kycportal/internal/transport/apiclient"
	dErrors "kycportal/pkg/domain-errors"
	"kycportal/pkg/platform/httputil"
)

type link struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

type landingPage struct {
	User         domain.Identity     `json:"user"`
	Capabilities policy.Capabilities `json:"capabilities"`
	Links        []link              `json:"links"`
	Device       string              `json:"device,omitempty"`
	KYCStatus    domain.KYCStatus    `json:"kycStatus,omitempty"`
}

func linksFor(identity *domain.Identity) []link {
	if identity.IsOfficer() {
		return []link{
			{Label: "Clients", Path: "/clients"},
			{Label: "Pending reviews", Path: "/review"},
			{Label: "Results", Path: "/results"},
			{Label: "My profile", Path: "/profile"},
		}
	}
	return []link{
		{Label: "My profile", Path: "/profile"},
		{Label: "KYC", Path: "/kyc"},
	}
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"form": form.New(auth.NewSchema(), form.Defaults{}).View(),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := workspaceFrom(ctx)

	var creds auth.Credentials
	if err := httputil.DecodeJSON(r, &creds); err != nil {
		httputil.WriteError(w, err)
		return
	}
	identity, err := h.auth.Login(ctx, ws.Auth, ws.Session, creds)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ws.Reset()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user":     identity,
		"redirect": policy.HomeFor(identity.Role),
	})
}

// handleLogout is ungated and idempotent: logging out twice equals once.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := workspaceFrom(ctx)
	if err := h.auth.Logout(ctx, ws.Auth, ws.Session); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ws.Reset()
	guard.WriteRedirect(w, policy.PathLogin)
}

func (h *Handler) handleLanding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := workspaceFrom(ctx)
	identity, ok := signedIn(w, ws)
	if !ok {
		return
	}

	page := landingPage{
		User:         *identity,
		Capabilities: policy.CapabilitiesFor(identity),
		Links:        linksFor(identity),
		Device:       ws.Session.Device(),
	}
	if !identity.IsOfficer() {
		data, err := ws.Services.KYC.GetKYCByUserID(ctx, identity.ID)
		switch {
		case err == nil:
			page.KYCStatus = data.Status
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			page.KYCStatus = domain.KYCNotSubmitted
		default:
			if errors.Is(err, apiclient.ErrSessionExpired) {
				h.fail(w, r, err)
				return
			}
			h.logger.WarnContext(ctx, "landing kyc status unavailable", "user_id", string(identity.ID), "error", err)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := workspaceFrom(ctx)
	identity, err := h.auth.Refresh(ctx, ws.Auth, ws.Session)
	if err != nil {
		if ws.Session.Current() == nil {
			ws.Reset()
		}
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": identity})
}

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// handleActivity lists the signed-in user's audit trail, newest first.
func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	if h.activity == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "activity log is not available"))
		return
	}
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxActivityLimit)
	}

	ctx := r.Context()
	identity, ok := signedIn(w, workspaceFrom(ctx))
	if !ok {
		return
	}
	events, err := h.activity.ListByUser(ctx, identity.ID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list activity", "user_id", string(identity.ID), "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "activity log unavailable"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
