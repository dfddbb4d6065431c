package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"kycportal/internal/audit"
	"kycportal/internal/audit/store/memory"
	"kycportal/internal/mockapi"
	"kycportal/internal/platform/logger"
	"kycportal/internal/platform/middleware"
	"kycportal/internal/session"
	"kycportal/internal/transport/apiclient"
	"kycportal/internal/web"
	"kycportal/internal/workspace"
	"kycportal/pkg/platform/middleware/metadata"
	"kycportal/pkg/platform/middleware/requestid"
	"kycportal/pkg/platform/middleware/requesttime"
)

const password = "TestPassword1@"

// clock is shared between the test goroutine and both servers.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type HandlerSuite struct {
	suite.Suite
	clock    *clock
	upstream *httptest.Server
	portal   *httptest.Server
	audits   *memory.InMemoryStore
	client   *http.Client
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.clock = &clock{t: time.Now().UTC()}

	backend, err := mockapi.NewBackend(nil, bcrypt.MinCost, s.clock.Now)
	s.Require().NoError(err)
	tokens := mockapi.NewTokenIssuer("test-key", time.Hour, s.clock.Now)
	upstream := chi.NewRouter()
	upstream.Mount("/api", mockapi.New(backend, tokens, logger.Discard()).Routes())
	s.upstream = httptest.NewServer(upstream)

	api, err := apiclient.New(s.upstream.URL+"/api", 2*time.Second, logger.Discard(), apiclient.WithRetry(0, time.Millisecond))
	s.Require().NoError(err)

	s.audits = memory.NewInMemoryStore()
	registry := workspace.NewRegistry(session.NewMemoryPersister(), api, logger.Discard())
	h := web.New(registry, logger.Discard(),
		web.WithAuditor(audit.NewPublisher(s.audits, audit.WithLogger(logger.Discard())), s.audits),
		web.WithLoginLimiter(middleware.NewKeyedLimiter(5)),
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.WithClock(s.clock.Now))
	r.Use(metadata.ClientMetadata)
	h.Register(r)
	s.portal = httptest.NewServer(r)

	s.client = s.newBrowser()
}

func (s *HandlerSuite) TearDownTest() {
	s.portal.Close()
	s.upstream.Close()
}

func (s *HandlerSuite) newBrowser() *http.Client {
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *HandlerSuite) call(c *http.Client, method, path string, body any) (int, http.Header, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.portal.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Do(req)
	s.Require().NoError(err)
	defer res.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, res.Header, out
}

func (s *HandlerSuite) do(method, path string, body any) (int, map[string]any) {
	status, _, out := s.call(s.client, method, path, body)
	return status, out
}

func (s *HandlerSuite) login(c *http.Client, email string) map[string]any {
	status, _, out := s.call(c, http.MethodPost, "/login", map[string]string{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, status, out)
	return out
}

func (s *HandlerSuite) redirectOf(method, path string) string {
	status, header, _ := s.call(s.client, method, path, nil)
	s.Require().Equal(http.StatusSeeOther, status, path)
	return header.Get("Location")
}

func formOf(page map[string]any) map[string]any {
	f, _ := page["form"].(map[string]any)
	return f
}

func fieldsOf(page map[string]any) map[string]any {
	f, _ := formOf(page)["fields"].(map[string]any)
	return f
}

func (s *HandlerSuite) TestAnonymousNavigation() {
	s.Equal("/login", s.redirectOf(http.MethodGet, "/landing"))
	s.Equal("/login", s.redirectOf(http.MethodGet, "/profile"))
	s.Equal("/login", s.redirectOf(http.MethodGet, "/clients"))
	s.Equal("/login", s.redirectOf(http.MethodGet, "/no/such/page"))

	status, page := s.do(http.MethodGet, "/login", nil)
	s.Equal(http.StatusOK, status)
	s.Equal("login", formOf(page)["form"])
}

func (s *HandlerSuite) TestLoginValidationAndBadCredentials() {
	status, body := s.do(http.MethodPost, "/login", map[string]string{"email": "short", "password": "weak"})
	s.Equal(http.StatusUnprocessableEntity, status)
	fields, _ := body["fields"].(map[string]any)
	s.Equal("Email must be between 8-10 characters", fields["email"])
	s.Equal("Password must be between 12-16 characters", fields["password"])

	status, body = s.do(http.MethodPost, "/login", map[string]string{"email": "user@test", "password": "WrongPass12@!"})
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Invalid email or password", body["error_description"])
	s.Equal("/login", s.redirectOf(http.MethodGet, "/landing"))
}

func (s *HandlerSuite) TestUserLoginLandingAndLogout() {
	out := s.login(s.client, "user@test")
	s.Equal("/profile", out["redirect"])

	// Signed-in users are bounced off the login page.
	s.Equal("/profile", s.redirectOf(http.MethodGet, "/login"))

	status, landing := s.do(http.MethodGet, "/landing", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("not_submitted", landing["kycStatus"])
	caps, _ := landing["capabilities"].(map[string]any)
	s.Equal(false, caps["canViewClientList"])
	s.Equal("/profile", s.redirectOf(http.MethodGet, "/clients"))

	s.Equal("/login", s.redirectOf(http.MethodPost, "/logout"))
	s.Equal("/login", s.redirectOf(http.MethodPost, "/logout"))
	s.Equal("/login", s.redirectOf(http.MethodGet, "/landing"))
}

func (s *HandlerSuite) TestWorkspacesAreIsolated() {
	s.login(s.client, "user@test")

	other := s.newBrowser()
	status, header, _ := s.call(other, http.MethodGet, "/landing", nil)
	s.Equal(http.StatusSeeOther, status)
	s.Equal("/login", header.Get("Location"))

	status, _ = s.do(http.MethodGet, "/landing", nil)
	s.Equal(http.StatusOK, status)
}

func (s *HandlerSuite) TestProfileEditAndSubmit() {
	s.login(s.client, "user@test")

	status, page := s.do(http.MethodGet, "/profile", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("1", page["target"])
	s.Equal("self", page["source"])
	s.Equal("John", fieldsOf(page)["firstName"])
	s.Equal(false, formOf(page)["mutable"])

	// Edits outside edit mode are ignored.
	_, page = s.do(http.MethodPatch, "/profile/fields", map[string]any{"path": "firstName", "value": "Mallory"})
	s.Equal("John", fieldsOf(page)["firstName"])

	_, page = s.do(http.MethodPost, "/profile/edit", nil)
	s.Equal(true, formOf(page)["mutable"])
	status, page = s.do(http.MethodPatch, "/profile/fields", map[string]any{"path": "firstName", "value": "Johnny"})
	s.Require().Equal(http.StatusOK, status)
	s.Equal("Johnny", fieldsOf(page)["firstName"])

	status, page = s.do(http.MethodPost, "/profile/submit", nil)
	s.Require().Equal(http.StatusOK, status, page)
	s.NotNil(page["saved"])
	s.Equal(false, formOf(page)["editing"])

	_, landing := s.do(http.MethodGet, "/landing", nil)
	user, _ := landing["user"].(map[string]any)
	s.Contains(user["name"], "Johnny")
	s.Equal(1, len(s.actions(audit.ActionProfileUpdated)))
}

func (s *HandlerSuite) TestProfileInvalidSubmitKeepsBuffer() {
	s.login(s.client, "user@test")
	s.do(http.MethodPost, "/profile/edit", nil)
	_, page := s.do(http.MethodPatch, "/profile/fields", map[string]any{"path": "lastName", "value": ""})
	errs, _ := formOf(page)["errors"].(map[string]any)
	s.Equal("Last name is required", errs["lastName"])

	status, body := s.do(http.MethodPost, "/profile/submit", nil)
	s.Equal(http.StatusUnprocessableEntity, status)
	fields, _ := body["fields"].(map[string]any)
	s.Equal("Last name is required", fields["lastName"])

	_, page = s.do(http.MethodGet, "/profile", nil)
	s.Equal("", fieldsOf(page)["lastName"])
	s.Equal(true, formOf(page)["editing"])

	_, page = s.do(http.MethodPost, "/profile/cancel", nil)
	s.Equal("Doe", fieldsOf(page)["lastName"])
}

func (s *HandlerSuite) TestProfileRowsRespectMinimum() {
	s.login(s.client, "user@test")
	s.do(http.MethodPost, "/profile/edit", nil)

	status, body := s.do(http.MethodDelete, "/profile/groups/emails/rows/0", nil)
	s.Equal(http.StatusUnprocessableEntity, status)
	s.NotEmpty(body["fields"])

	status, body = s.do(http.MethodPost, "/profile/groups/emails/rows", map[string]any{"values": map[string]any{"email": "second@example.com"}})
	s.Require().Equal(http.StatusCreated, status)
	s.NotEmpty(body["id"])

	status, _ = s.do(http.MethodDelete, "/profile/groups/emails/rows/1", nil)
	s.Equal(http.StatusOK, status)
	status, _ = s.do(http.MethodDelete, "/profile/groups/emails/rows/x", nil)
	s.Equal(http.StatusBadRequest, status)
}

func (s *HandlerSuite) TestOfficerClientListAndSelection() {
	out := s.login(s.client, "officer@te")
	s.Equal("/clients", out["redirect"])

	status, body := s.do(http.MethodGet, "/clients", nil)
	s.Require().Equal(http.StatusOK, status)
	clients, _ := body["clients"].([]any)
	s.Len(clients, 5)

	_, body = s.do(http.MethodGet, "/clients?status=pending", nil)
	clients, _ = body["clients"].([]any)
	s.Require().Len(clients, 1)
	s.Equal("Emily Johnson", clients[0].(map[string]any)["name"])

	status, _ = s.do(http.MethodGet, "/clients?status=bogus", nil)
	s.Equal(http.StatusBadRequest, status)

	status, body = s.do(http.MethodPost, "/clients/3/select", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("/profile", body["redirect"])

	_, page := s.do(http.MethodGet, "/profile", nil)
	s.Equal("3", page["target"])
	s.Equal("selection", page["source"])
	s.Equal(true, formOf(page)["readOnly"])

	req, err := http.NewRequest(http.MethodDelete, s.portal.URL+"/clients/selection", nil)
	s.Require().NoError(err)
	res, err := s.client.Do(req)
	s.Require().NoError(err)
	res.Body.Close()
	s.Equal(http.StatusNoContent, res.StatusCode)

	_, page = s.do(http.MethodGet, "/profile", nil)
	s.Equal("2", page["target"])
}

func (s *HandlerSuite) TestOfficerViewsUserRecordsReadOnly() {
	s.login(s.client, "officer@te")

	status, page := s.do(http.MethodGet, "/profile/1", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("route", page["source"])
	s.Equal("John", fieldsOf(page)["firstName"])
	s.Equal(true, formOf(page)["readOnly"])

	_, page = s.do(http.MethodPost, "/profile/1/edit", nil)
	s.Equal(false, formOf(page)["mutable"])
	status, _ = s.do(http.MethodPost, "/profile/1/submit", nil)
	s.Equal(http.StatusForbidden, status)

	status, page = s.do(http.MethodGet, "/kyc/1", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(true, formOf(page)["readOnly"])
}

func (s *HandlerSuite) TestUserCannotOpenOtherRecords() {
	s.login(s.client, "user@test")
	s.Equal("/profile", s.redirectOf(http.MethodGet, "/profile/2"))
	s.Equal("/profile", s.redirectOf(http.MethodGet, "/kyc/2"))
	s.Equal("/profile", s.redirectOf(http.MethodGet, "/review"))
}

func (s *HandlerSuite) submitKYC(c *http.Client) {
	for _, u := range []map[string]any{
		{"path": "documentNumber", "value": "AB123456"},
		{"path": "issueDate", "value": "2020-01-01"},
		{"path": "expiryDate", "value": "2099-01-01"},
		{"path": "issuingCountry", "value": "US"},
		{"path": "incomes[0].amount", "value": 5000},
		{"path": "assets[0].amount", "value": 20000},
	} {
		status, _, body := s.call(c, http.MethodPatch, "/kyc/fields", u)
		s.Require().Equal(http.StatusOK, status, body)
	}
	status, _, body := s.call(c, http.MethodPost, "/kyc/submit", nil)
	s.Require().Equal(http.StatusOK, status, body)
	s.NotNil(body["saved"])
}

func (s *HandlerSuite) TestKYCSubmitAndOfficerReview() {
	s.login(s.client, "user@test")
	status, page := s.do(http.MethodGet, "/kyc", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(false, formOf(page)["readOnly"])

	status, body := s.do(http.MethodPost, "/kyc/submit", nil)
	s.Equal(http.StatusUnprocessableEntity, status)
	fields, _ := body["fields"].(map[string]any)
	s.Equal("Document number is required", fields["documentNumber"])

	s.submitKYC(s.client)
	_, landing := s.do(http.MethodGet, "/landing", nil)
	s.Equal("pending", landing["kycStatus"])

	officer := s.newBrowser()
	s.login(officer, "officer@te")

	status, _, body = s.call(officer, http.MethodGet, "/review", nil)
	s.Require().Equal(http.StatusOK, status)
	pending, _ := body["clients"].([]any)
	s.Len(pending, 2)

	status, _, body = s.call(officer, http.MethodGet, "/review/1", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("25000", body["netWorth"])

	status, _, body = s.call(officer, http.MethodPost, "/review/1", map[string]string{"status": "maybe"})
	s.Equal(http.StatusUnprocessableEntity, status)
	fields, _ = body["fields"].(map[string]any)
	s.Equal("Status must be approved or rejected", fields["status"])

	status, _, body = s.call(officer, http.MethodPost, "/review/1", map[string]string{"status": "approved"})
	s.Require().Equal(http.StatusCreated, status, body)
	s.Equal("Approved", body["comments"])

	status, _, body = s.call(officer, http.MethodGet, "/results", nil)
	s.Require().Equal(http.StatusOK, status)
	results, _ := body["results"].([]any)
	s.Require().NotEmpty(results)
	s.Equal("John Doe", results[0].(map[string]any)["name"])

	_, landing = s.do(http.MethodGet, "/landing", nil)
	s.Equal("approved", landing["kycStatus"])
	s.Len(s.actions(audit.ActionReviewSubmitted), 1)
}

func (s *HandlerSuite) TestExpiredTokenEndsSession() {
	s.login(s.client, "officer@te")
	s.clock.Advance(2 * time.Hour)

	status, _ := s.do(http.MethodGet, "/clients", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("/login", s.redirectOf(http.MethodGet, "/clients"))
	s.Len(s.actions(audit.ActionSessionExpired), 1)
}

func (s *HandlerSuite) TestSessionRefresh() {
	s.login(s.client, "user@test")
	s.clock.Advance(30 * time.Minute)

	status, body := s.do(http.MethodPost, "/session/refresh", nil)
	s.Require().Equal(http.StatusOK, status, body)

	// The refreshed token outlives the original one.
	s.clock.Advance(45 * time.Minute)
	status, _ = s.do(http.MethodGet, "/profile", nil)
	s.Equal(http.StatusOK, status)
}

func (s *HandlerSuite) TestSessionRefreshKeepsSessionUsable() {
	s.login(s.client, "user@test")

	status, body := s.do(http.MethodPost, "/session/refresh", nil)
	s.Require().Equal(http.StatusOK, status, body)
	user, _ := body["user"].(map[string]any)
	s.Equal("1", user["id"])

	status, _ = s.do(http.MethodGet, "/landing", nil)
	s.Equal(http.StatusOK, status)
	s.Empty(s.actions(audit.ActionSessionExpired))
}

func (s *HandlerSuite) TestActivityListsOwnEvents() {
	s.login(s.client, "user@test")
	status, body := s.do(http.MethodGet, "/activity?limit=10", nil)
	s.Require().Equal(http.StatusOK, status)
	events, _ := body["events"].([]any)
	s.Require().NotEmpty(events)
	s.Equal(string(audit.ActionLoginSucceeded), events[0].(map[string]any)["action"])

	status, _ = s.do(http.MethodGet, "/activity?limit=-1", nil)
	s.Equal(http.StatusBadRequest, status)
}

func (s *HandlerSuite) TestLoginThrottled() {
	creds := map[string]string{"email": "user@test", "password": "WrongPass12@!"}
	for range 5 {
		status, _ := s.do(http.MethodPost, "/login", creds)
		s.Equal(http.StatusUnauthorized, status)
	}
	status, _ := s.do(http.MethodPost, "/login", creds)
	s.Equal(http.StatusTooManyRequests, status)
	s.Len(s.actions(audit.ActionLoginThrottled), 1)
}

func (s *HandlerSuite) TestHealthNeedsNoWorkspace() {
	status, header, body := s.call(s.client, http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, status)
	s.Equal("ok", body["status"])
	s.Empty(header.Values("Set-Cookie"))
}

func (s *HandlerSuite) actions(action audit.Action) []audit.Event {
	var out []audit.Event
	for _, e := range s.audits.All() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
