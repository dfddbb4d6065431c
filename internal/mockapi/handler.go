// Package mockapi is a self-contained stand-in for the KYC REST API, used
// when no upstream is configured and in tests. Responses use the
// {success,data,message} envelope.
package mockapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kycportal/internal/domain"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
	"kycportal/pkg/platform/httputil"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type claimsKey struct{}

type Handler struct {
	backend *Backend
	tokens  *TokenIssuer
	logger  *slog.Logger
}

func New(backend *Backend, tokens *TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{backend: backend, tokens: tokens, logger: logger}
}

// Routes returns the API mounted at its root; callers mount it under /api.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(h.requireToken)
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/auth/me", h.handleMe)

		r.Get("/profiles/{userID}", h.handleGetProfile)
		r.Patch("/profiles/{userID}", h.handleUpdateProfile)
		r.Post("/kyc", h.handleSubmitKYC)
		r.Get("/kyc/user/{userID}", h.handleGetKYC)

		r.Group(func(r chi.Router) {
			r.Use(requireOfficer)
			r.Get("/clients", h.handleListClients)
			r.Get("/clients/search", h.handleSearchClients)
			r.Get("/clients/{clientID}", h.handleGetClient)
			r.Get("/reviews", h.handleListReviews)
			r.Post("/reviews", h.handleSubmitReview)
			r.Get("/reviews/user/{userID}", h.handleUserReviews)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, dErrors.New(dErrors.CodeNotFound, "endpoint not found"))
	})
	return r
}

func writeData(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	msg := "internal error"
	if de, ok := dErrors.As(err); ok && code != dErrors.CodeInternal {
		msg = de.Message
	}
	httputil.WriteJSON(w, httputil.StatusFor(code), envelope{Success: false, Message: msg})
}

func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

func bearer(r *http.Request) string {
	v := r.Header.Get("Authorization")
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			writeFailure(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
			return
		}
		claims, err := h.tokens.Validate(raw)
		if err != nil {
			writeFailure(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func requireOfficer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claimsFrom(r.Context()).Role != domain.RoleOfficer {
			writeFailure(w, dErrors.New(dErrors.CodeForbidden, "officer role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// selfOrOfficer admits the owner of userID and any officer.
func selfOrOfficer(c *Claims, userID id.UserID) bool {
	return c.UserID == string(userID) || c.Role == domain.RoleOfficer
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	identity, err := h.backend.Authenticate(req.Email, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	token, refresh, err := h.tokens.Issue(identity)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue mock token", "error", err)
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"user":         identity,
		"token":        token,
		"refreshToken": refresh,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.tokens.Revoke(claimsFrom(r.Context()))
	writeData(w, http.StatusOK, nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, err := h.backend.Identity(id.UserID(claimsFrom(r.Context()).UserID))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, identity)
}

// handleRefresh rotates a valid bearer token, or exchanges a refresh token
// sent in the body when the bearer is missing or expired.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if claims, err := h.tokens.Validate(bearer(r)); err == nil {
		token, err := h.tokens.Rotate(claims)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"token": token})
		return
	}

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = httputil.DecodeJSON(r, &req)
	userID, ok := h.tokens.Exchange(req.RefreshToken)
	if !ok {
		writeFailure(w, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token"))
		return
	}
	identity, err := h.backend.Identity(userID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	token, refresh, err := h.tokens.Issue(identity)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"token": token, "refreshToken": refresh})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(chi.URLParam(r, "userID"))
	if !selfOrOfficer(claimsFrom(r.Context()), userID) {
		writeFailure(w, dErrors.New(dErrors.CodeForbidden, "cannot read another user's profile"))
		return
	}
	info, err := h.backend.Profile(userID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, info)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(chi.URLParam(r, "userID"))
	if claimsFrom(r.Context()).UserID != string(userID) {
		writeFailure(w, dErrors.New(dErrors.CodeForbidden, "cannot edit another user's profile"))
		return
	}
	var info domain.PersonalInfo
	if err := httputil.DecodeJSON(r, &info); err != nil {
		writeFailure(w, err)
		return
	}
	out, err := h.backend.UpdateProfile(userID, info)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *Handler) handleSubmitKYC(w http.ResponseWriter, r *http.Request) {
	var snap domain.KYCSnapshot
	if err := httputil.DecodeJSON(r, &snap); err != nil {
		writeFailure(w, err)
		return
	}
	if claimsFrom(r.Context()).UserID != string(snap.UserID) {
		writeFailure(w, dErrors.New(dErrors.CodeForbidden, "cannot submit KYC for another user"))
		return
	}
	data, err := h.backend.SubmitKYC(snap)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusCreated, data)
}

func (h *Handler) handleGetKYC(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(chi.URLParam(r, "userID"))
	if !selfOrOfficer(claimsFrom(r.Context()), userID) {
		writeFailure(w, dErrors.New(dErrors.CodeForbidden, "cannot read another user's KYC"))
		return
	}
	data, err := h.backend.KYC(userID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, data)
}

func (h *Handler) handleListClients(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, h.backend.Clients())
}

func (h *Handler) handleSearchClients(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.backend.Search(r.URL.Query().Get("q")))
}

func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.backend.Client(id.UserID(chi.URLParam(r, "clientID")))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *Handler) handleListReviews(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, h.backend.Reviews())
}

func (h *Handler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var req domain.ReviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if req.ReviewerID.IsZero() {
		req.ReviewerID = id.UserID(claimsFrom(r.Context()).UserID)
	}
	review, err := h.backend.SubmitReview(req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusCreated, review)
}

func (h *Handler) handleUserReviews(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, h.backend.ReviewsByUser(id.UserID(chi.URLParam(r, "userID"))))
}
