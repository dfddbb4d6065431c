package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycportal/internal/domain"
	"kycportal/internal/platform/logger"
	"kycportal/internal/session"
	"kycportal/internal/workspace"
	id "kycportal/pkg/domain"
	"kycportal/pkg/testutil"
)

func newWorkspace() *workspace.Workspace {
	wsID := id.NewWorkspaceID()
	return &workspace.Workspace{
		ID:      wsID,
		Session: session.NewStore(wsID, session.NewMemoryPersister(), session.WithLogger(logger.Discard())),
	}
}

func withWorkspace(r *http.Request, ws *workspace.Workspace) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), workspaceKey{}, ws))
}

func TestSignedIn(t *testing.T) {
	ws := newWorkspace()

	rr := httptest.NewRecorder()
	_, ok := signedIn(rr, ws)
	assert.False(t, ok)
	testutil.AssertRedirect(t, rr, "/login")

	john := domain.Identity{ID: "1", Email: "user@test", Name: "John Doe", Role: domain.RoleNormalUser}
	require.NoError(t, ws.Session.Login(context.Background(), john, "tok"))
	rr = httptest.NewRecorder()
	identity, ok := signedIn(rr, ws)
	require.True(t, ok)
	assert.Equal(t, id.UserID("1"), identity.ID)
}

func TestFormPagesRedirectAfterConcurrentLogout(t *testing.T) {
	h := &Handler{logger: logger.Discard()}
	called := false
	handler := h.withForm(formPage{}, func(http.ResponseWriter, *http.Request, *formResponse, editable) {
		called = true
	})

	req := withWorkspace(httptest.NewRequest(http.MethodGet, "/profile", nil), newWorkspace())
	rr := httptest.NewRecorder()
	handler(rr, req)

	assert.False(t, called)
	testutil.AssertRedirect(t, rr, "/login")
}

func TestLandingRedirectsWithoutSession(t *testing.T) {
	h := &Handler{logger: logger.Discard()}
	req := withWorkspace(httptest.NewRequest(http.MethodGet, "/landing", nil), newWorkspace())
	rr := httptest.NewRecorder()
	h.handleLanding(rr, req)
	testutil.AssertRedirect(t, rr, "/login")
}
