package web

import (
	"context"
	"net/http"

	"kycportal/internal/domain"
	"kycportal/internal/guard"
	"kycportal/internal/policy"
	"kycportal/internal/workspace"
	id "kycportal/pkg/domain"
	"kycportal/pkg/platform/httputil"
	"kycportal/pkg/requestcontext"
)

// CookieName carries the workspace id.
const CookieName = "kyc_ws"

type workspaceKey struct{}

func workspaceFrom(ctx context.Context) *workspace.Workspace {
	ws, _ := ctx.Value(workspaceKey{}).(*workspace.Workspace)
	return ws
}

// signedIn returns the session identity. Reads do not hold the workspace
// lock, so a logout may land after the guard passed; the caller is then sent
// to the login page.
func signedIn(w http.ResponseWriter, ws *workspace.Workspace) (*domain.Identity, bool) {
	identity := ws.Session.Current()
	if identity == nil {
		guard.WriteRedirect(w, policy.PathLogin)
		return nil, false
	}
	return identity, true
}

// loadWorkspace attaches the browser's workspace to the request, issuing a
// new workspace cookie when none (or a malformed one) was sent. Requests
// that may mutate state run one at a time per workspace.
func (h *Handler) loadWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var wsID id.WorkspaceID
		if c, err := r.Cookie(CookieName); err == nil {
			wsID, _ = id.ParseWorkspaceID(c.Value)
		}
		if wsID.IsNil() {
			wsID = id.NewWorkspaceID()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    wsID.String(),
				Path:     "/",
				MaxAge:   int(h.cookieTTL.Seconds()),
				HttpOnly: true,
				Secure:   h.cookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ws, err := h.registry.Get(ctx, wsID)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to load workspace",
				"workspace_id", wsID.String(),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		ctx = requestcontext.WithWorkspaceID(ctx, wsID)
		if identity := ws.Session.Current(); identity != nil {
			ctx = requestcontext.WithUserID(ctx, identity.ID)
		}
		ctx = context.WithValue(ctx, workspaceKey{}, ws)

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			ws.Lock()
			defer ws.Unlock()
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
