package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"kycportal/internal/domain"
	"kycportal/internal/platform/logger"
	"kycportal/internal/transport/apiclient"
	dErrors "kycportal/pkg/domain-errors"
)

type stubSession struct {
	token     string
	loggedOut bool
}

func (s *stubSession) Token() string { return s.token }

func (s *stubSession) Logout(context.Context) error {
	s.loggedOut = true
	s.token = ""
	return nil
}

type ServicesSuite struct {
	suite.Suite
	mux     *http.ServeMux
	server  *httptest.Server
	session *stubSession
	svc     *Services
}

func TestServicesSuite(t *testing.T) {
	suite.Run(t, new(ServicesSuite))
}

func (s *ServicesSuite) SetupTest() {
	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	api, err := apiclient.New(s.server.URL+"/api", time.Second, logger.Discard(), apiclient.WithRetry(0, time.Millisecond))
	s.Require().NoError(err)
	s.session = &stubSession{token: "tok"}
	s.svc = New(api, s.session)
}

func (s *ServicesSuite) TearDownTest() {
	s.server.Close()
}

func envelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 300,
		"data":    data,
		"message": message,
	})
}

func (s *ServicesSuite) TestLoginIsAnonymous() {
	s.mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		s.Empty(r.Header.Get("Authorization"))
		var creds Credentials
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "TestPassword1@" {
			envelope(w, http.StatusUnauthorized, nil, "Invalid email or password")
			return
		}
		envelope(w, http.StatusOK, map[string]any{
			"user":  map[string]any{"id": "1", "email": creds.Email, "name": "John Doe", "role": "NORMAL_USER"},
			"token": "jwt",
		}, "")
	})

	res, err := s.svc.Auth.Login(context.Background(), "user@test", "TestPassword1@")
	s.Require().NoError(err)
	s.Equal("jwt", res.Token)
	s.Equal(domain.RoleNormalUser, res.User.Role)

	_, err = s.svc.Auth.Login(context.Background(), "user@test", "wrong")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "Invalid email or password")
	s.False(s.session.loggedOut, "anonymous 401 must not end the session")
}

func (s *ServicesSuite) TestAuthenticatedCallsCarryToken() {
	s.mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("Bearer tok", r.Header.Get("Authorization"))
		envelope(w, http.StatusOK, map[string]any{"id": "2", "role": "OFFICER"}, "")
	})
	me, err := s.svc.Auth.CurrentUser(context.Background())
	s.Require().NoError(err)
	s.True(me.IsOfficer())
}

func (s *ServicesSuite) TestExpiredTokenEndsSession() {
	s.mux.HandleFunc("GET /api/clients", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusUnauthorized, nil, "token expired")
	})
	_, err := s.svc.Clients.GetAllClients(context.Background())
	s.ErrorIs(err, apiclient.ErrSessionExpired)
	s.True(s.session.loggedOut)
}

func (s *ServicesSuite) TestSearchClients() {
	s.mux.HandleFunc("GET /api/clients/search", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("doe", r.URL.Query().Get("q"))
		envelope(w, http.StatusOK, []map[string]any{{"id": "1", "name": "John Doe", "kycStatus": "pending"}}, "")
	})
	got, err := s.svc.Clients.SearchClients(context.Background(), "doe")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(domain.KYCPending, got[0].KYCStatus)
}

func (s *ServicesSuite) TestGetKYCNotFound() {
	s.mux.HandleFunc("GET /api/kyc/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("7", r.PathValue("id"))
		envelope(w, http.StatusNotFound, nil, "KYC data not found")
	})
	_, err := s.svc.KYC.GetKYCByUserID(context.Background(), "7")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServicesSuite) TestSubmitKYC() {
	s.mux.HandleFunc("POST /api/kyc", func(w http.ResponseWriter, r *http.Request) {
		var snap domain.KYCSnapshot
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&snap))
		s.Equal("1500", snap.Incomes[0].Amount.String())
		envelope(w, http.StatusCreated, domain.KYCData{ID: "k1", Status: domain.KYCPending, KYCSnapshot: snap}, "")
	})
	got, err := s.svc.KYC.SubmitKYC(context.Background(), domain.KYCSnapshot{
		UserID:  "1",
		Incomes: []domain.FinancialRow{{ID: "inc-1", Type: "Salary", Amount: decimal.NewFromInt(1500)}},
	})
	s.Require().NoError(err)
	s.Equal(domain.KYCPending, got.Status)
	s.True(got.NetWorth().Equal(decimal.NewFromInt(1500)))
}

func (s *ServicesSuite) TestUpdateProfileUsesPatch() {
	s.mux.HandleFunc("PATCH /api/profiles/{id}", func(w http.ResponseWriter, r *http.Request) {
		var info domain.PersonalInfo
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&info))
		envelope(w, http.StatusOK, info, "")
	})
	got, err := s.svc.Profiles.UpdateProfile(context.Background(), "1", domain.PersonalInfo{FirstName: "Jane"})
	s.Require().NoError(err)
	s.Equal("Jane", got.FirstName)
}

func (s *ServicesSuite) TestReviews() {
	s.mux.HandleFunc("POST /api/reviews", func(w http.ResponseWriter, r *http.Request) {
		var req domain.ReviewRequest
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&req))
		envelope(w, http.StatusCreated, domain.Review{ID: "r1", KYCID: req.KYCID, Status: req.Status}, "")
	})
	s.mux.HandleFunc("GET /api/reviews/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, []domain.Review{{ID: "r1"}}, "")
	})

	rev, err := s.svc.Reviews.SubmitReview(context.Background(), domain.ReviewRequest{KYCID: "kyc-1", Status: domain.ReviewApproved})
	s.Require().NoError(err)
	s.Equal(domain.ReviewApproved, rev.Status)

	list, err := s.svc.Reviews.GetReviewsByUserID(context.Background(), "1")
	s.Require().NoError(err)
	s.Len(list, 1)
}
