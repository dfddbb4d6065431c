package mockapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"kycportal/internal/domain"
	"kycportal/internal/platform/logger"
	"kycportal/internal/services"
	"kycportal/internal/transport/apiclient"
	dErrors "kycportal/pkg/domain-errors"
)

type tokenHolder struct {
	token string
}

func (t *tokenHolder) Token() string { return t.token }

func (t *tokenHolder) Logout(context.Context) error {
	t.token = ""
	return nil
}

type HandlerSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	backend *Backend
	tokens  *TokenIssuer
	server  *httptest.Server
	api     *apiclient.Client
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	var err error
	s.backend, err = NewBackend(nil, bcrypt.MinCost, clock)
	s.Require().NoError(err)
	s.tokens = NewTokenIssuer("test-key", time.Hour, clock)

	r := chi.NewRouter()
	r.Mount("/api", New(s.backend, s.tokens, logger.Discard()).Routes())
	s.server = httptest.NewServer(r)
	s.api, err = apiclient.New(s.server.URL+"/api", time.Second, logger.Discard(), apiclient.WithRetry(0, time.Millisecond))
	s.Require().NoError(err)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

// login returns a services bundle bound to a freshly logged-in session.
func (s *HandlerSuite) login(email string) (*services.Services, *tokenHolder) {
	holder := &tokenHolder{}
	svc := services.New(s.api, holder)
	res, err := svc.Auth.Login(s.ctx, email, "TestPassword1@")
	s.Require().NoError(err)
	holder.token = res.Token
	return svc, holder
}

func (s *HandlerSuite) TestLogin() {
	svc, holder := s.login("user@test")
	s.NotEmpty(holder.token)

	me, err := svc.Auth.CurrentUser(s.ctx)
	s.Require().NoError(err)
	s.Equal("John Doe", me.Name)
	s.Equal(domain.RoleNormalUser, me.Role)
	s.Require().NotNil(me.PersonalInfo)
	s.Equal(35, me.PersonalInfo.Age)

	_, err = svc.Auth.Login(s.ctx, "user@test", "WrongPassword1@")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "Invalid email or password")

	_, err = svc.Auth.Login(s.ctx, "nobody@x", "TestPassword1@")
	s.Contains(err.Error(), "Invalid email or password")
}

func (s *HandlerSuite) TestClientsAreOfficerOnly() {
	user, _ := s.login("user@test")
	_, err := user.Clients.GetAllClients(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	officer, _ := s.login("officer@te")
	clients, err := officer.Clients.GetAllClients(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(clients, 5)
	s.Equal("1", string(clients[0].ID))
	s.Equal(domain.KYCNotSubmitted, clients[0].KYCStatus)

	found, err := officer.Clients.SearchClients(s.ctx, "BROWN")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Sophia Brown", found[0].Name)

	_, err = officer.Clients.GetClientByID(s.ctx, "99")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *HandlerSuite) TestKYCAndReviewFlow() {
	user, _ := s.login("user@test")
	_, err := user.KYC.GetKYCByUserID(s.ctx, "1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	submitted, err := user.KYC.SubmitKYC(s.ctx, domain.KYCSnapshot{
		UserID:       "1",
		DocumentType: "passport",
		Incomes:      []domain.FinancialRow{{ID: "inc-1", Type: "Salary", Amount: decimal.NewFromInt(1000)}},
		Assets:       []domain.FinancialRow{{ID: "ass-1", Type: "Liquidity", Amount: decimal.NewFromInt(500)}},
	})
	s.Require().NoError(err)
	s.Equal(domain.KYCIDFor("1"), submitted.ID)
	s.Equal(domain.KYCPending, submitted.Status)

	_, err = user.KYC.SubmitKYC(s.ctx, domain.KYCSnapshot{UserID: "3"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	officer, _ := s.login("officer@te")
	client, err := officer.Clients.GetClientByID(s.ctx, "1")
	s.Require().NoError(err)
	s.Equal(domain.KYCPending, client.KYCStatus)

	review, err := officer.Reviews.SubmitReview(s.ctx, domain.ReviewRequest{
		UserID: "1", KYCID: domain.KYCIDFor("1"), Status: domain.ReviewApproved, Comments: "ok",
	})
	s.Require().NoError(err)
	s.Equal("2", string(review.ReviewerID))

	client, err = officer.Clients.GetClientByID(s.ctx, "1")
	s.Require().NoError(err)
	s.Equal(domain.KYCApproved, client.KYCStatus)

	stored, err := officer.KYC.GetKYCByUserID(s.ctx, "1")
	s.Require().NoError(err)
	s.Equal(domain.KYCApproved, stored.Status)
	s.True(stored.NetWorth().Equal(decimal.NewFromInt(1500)))

	reviews, err := officer.Reviews.GetReviewsByUserID(s.ctx, "1")
	s.Require().NoError(err)
	s.Len(reviews, 1)

	_, err = officer.Reviews.SubmitReview(s.ctx, domain.ReviewRequest{UserID: "1", Status: "maybe"})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *HandlerSuite) TestProfileUpdateRenamesClient() {
	user, _ := s.login("user@test")
	info, err := user.Profiles.GetProfile(s.ctx, "1")
	s.Require().NoError(err)
	info.FirstName = "Johnny"

	saved, err := user.Profiles.UpdateProfile(s.ctx, "1", *info)
	s.Require().NoError(err)
	s.Equal("p1", saved.ID)

	_, err = user.Profiles.UpdateProfile(s.ctx, "2", *info)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	_, err = user.Profiles.GetProfile(s.ctx, "2")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	officer, _ := s.login("officer@te")
	client, err := officer.Clients.GetClientByID(s.ctx, "1")
	s.Require().NoError(err)
	s.Equal("Johnny Doe", client.Name)
}

func (s *HandlerSuite) TestLogoutRevokesToken() {
	user, holder := s.login("user@test")
	s.Require().NoError(user.Auth.Logout(s.ctx))

	_, err := user.Auth.CurrentUser(s.ctx)
	s.ErrorIs(err, apiclient.ErrSessionExpired)
	s.Empty(holder.token)
}

func (s *HandlerSuite) TestExpiredTokenIsRejected() {
	user, holder := s.login("user@test")
	s.now = s.now.Add(2 * time.Hour)

	_, err := user.Auth.CurrentUser(s.ctx)
	s.ErrorIs(err, apiclient.ErrSessionExpired)
	s.Empty(holder.token)
}

func (s *HandlerSuite) TestRefreshRotatesToken() {
	user, holder := s.login("user@test")
	old := holder.token
	s.now = s.now.Add(time.Second)

	fresh, err := user.Auth.RefreshToken(s.ctx)
	s.Require().NoError(err)
	s.NotEqual(old, fresh)

	_, err = user.Auth.CurrentUser(s.ctx)
	s.ErrorIs(err, apiclient.ErrSessionExpired, "the rotated-out token is revoked")

	holder.token = fresh
	me, err := user.Auth.CurrentUser(s.ctx)
	s.Require().NoError(err)
	s.Equal("1", string(me.ID))
}

func (s *HandlerSuite) TestLocalAuthenticator() {
	holder := &tokenHolder{}
	local := NewLocalAuthenticator(s.backend, s.tokens, holder)

	_, err := local.Login(s.ctx, "officer@te", "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	res, err := local.Login(s.ctx, "officer@te", "TestPassword1@")
	s.Require().NoError(err)
	holder.token = res.Token

	// tokens issued in process work against the HTTP API too
	officer := services.New(s.api, holder)
	_, err = officer.Clients.GetAllClients(s.ctx)
	s.Require().NoError(err)

	me, err := local.CurrentUser(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.RoleOfficer, me.Role)

	s.Require().NoError(local.Logout(s.ctx))
	_, err = local.CurrentUser(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Require().NoError(local.Logout(s.ctx))
}
