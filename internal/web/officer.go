package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kycportal/internal/domain"
	"kycportal/internal/policy"
	"kycportal/internal/review"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
	"kycportal/pkg/platform/httputil"
)

var listableStatuses = map[domain.KYCStatus]bool{
	domain.KYCPending:      true,
	domain.KYCApproved:     true,
	domain.KYCRejected:     true,
	domain.KYCNotSubmitted: true,
}

func routeUserID(r *http.Request) (id.UserID, error) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid user id")
	}
	return userID, nil
}

// handleClients lists clients, optionally narrowed by ?q= (upstream search)
// and ?status=.
func (h *Handler) handleClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := workspaceFrom(ctx)

	status := domain.KYCStatus(r.URL.Query().Get("status"))
	if status != "" && !listableStatuses[status] {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown status filter"))
		return
	}

	var (
		clients []domain.Client
		err     error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		clients, err = ws.Services.Clients.SearchClients(ctx, q)
	} else {
		clients, err = ws.Services.Clients.GetAllClients(ctx)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if status != "" {
		clients = domain.FilterByStatus(clients, status)
	}
	if clients == nil {
		clients = []domain.Client{}
	}

	var selected *domain.Client
	if c, ok := ws.Selection.Selected(); ok {
		selected = &c
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"clients":  clients,
		"selected": selected,
	})
}

// handleSelectClient makes userID the officer's working client. Cached forms
// belong to the previous target and are dropped.
func (h *Handler) handleSelectClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := workspaceFrom(ctx)

	userID, err := routeUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	client, err := ws.Services.Clients.GetClientByID(ctx, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ws.Selection.Select(*client)
	ws.Invalidate()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"selected": client,
		"redirect": policy.PathProfile,
	})
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	workspaceFrom(r.Context()).Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePendingReviews(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	pending, err := h.reviewService(ws).Pending(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"clients": pending})
}

func (h *Handler) handleReviewDetail(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	userID, err := routeUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.reviewService(ws).Detail(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := workspaceFrom(ctx)
	userID, err := routeUserID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var d review.Decision
	if err := httputil.DecodeJSON(r, &d); err != nil {
		httputil.WriteError(w, err)
		return
	}
	saved, err := h.reviewService(ws).Decide(ctx, ws.Session.Current(), userID, d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// The client's status changed upstream; cached forms are stale.
	ws.Invalidate()
	httputil.WriteJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	results, err := h.reviewService(ws).Results(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}
