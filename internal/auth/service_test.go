package auth_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycportal/internal/audit"
	"kycportal/internal/audit/store/memory"
	"kycportal/internal/auth"
	"kycportal/internal/auth/mocks"
	"kycportal/internal/domain"
	"kycportal/internal/form"
	"kycportal/internal/platform/logger"
	"kycportal/internal/services"
	"kycportal/internal/session"
	id "kycportal/pkg/domain"
	dErrors "kycportal/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	authn   *mocks.MockAuthenticator
	audits  *memory.InMemoryStore
	session *session.Store
	service *auth.Service
	john    domain.Identity
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.authn = mocks.NewMockAuthenticator(s.ctrl)
	s.audits = memory.NewInMemoryStore()
	s.session = session.NewStore(id.NewWorkspaceID(), session.NewMemoryPersister(), session.WithLogger(logger.Discard()))
	s.service = auth.New(logger.Discard(),
		auth.WithAuditor(audit.NewPublisher(s.audits, audit.WithLogger(logger.Discard()))))
	s.john = domain.Identity{ID: "1", Email: "user@test", Name: "John Doe", Role: domain.RoleNormalUser}
}

func (s *ServiceSuite) TestLoginValidatesBeforeCallingBackend() {
	cases := []struct {
		name  string
		creds auth.Credentials
		field string
		msg   string
	}{
		{"missing email", auth.Credentials{Password: "TestPassword1@"}, "email", "Email is required"},
		{"short email", auth.Credentials{Email: "a@b.c", Password: "TestPassword1@"}, "email", "Email must be between 8-10 characters"},
		{"missing password", auth.Credentials{Email: "user@test"}, "password", "Password is required"},
		{"short password", auth.Credentials{Email: "user@test", Password: "Short1@"}, "password", "Password must be between 12-16 characters"},
		{"weak password", auth.Credentials{Email: "user@test", Password: "weakpassword"}, "password",
			"Password must contain uppercase, lowercase, number, and special character (@, #, &, !)"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Login(s.ctx, s.authn, s.session, tc.creds)
			var verr *form.ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Equal(tc.msg, verr.Errors[tc.field])
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.False(s.session.IsAuthenticated())
		})
	}
	s.Zero(s.audits.Len(), "validation failures are not audited")
}

func (s *ServiceSuite) TestLoginSucceeds() {
	s.authn.EXPECT().Login(gomock.Any(), "user@test", "TestPassword1@").
		Return(&services.AuthResponse{User: s.john, Token: "tok-1"}, nil)

	got, err := s.service.Login(s.ctx, s.authn, s.session, auth.Credentials{Email: " user@test ", Password: "TestPassword1@"})
	s.Require().NoError(err)
	s.Equal(id.UserID("1"), got.ID)
	s.True(s.session.IsAuthenticated())
	s.Equal("tok-1", s.session.Token())

	events, err := s.audits.ListByUser(s.ctx, "1", 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionLoginSucceeded, events[0].Action)
}

func (s *ServiceSuite) TestLoginRejectedByBackend() {
	s.authn.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid email or password"))

	_, err := s.service.Login(s.ctx, s.authn, s.session, auth.Credentials{Email: "user@test", Password: "TestPassword2@"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.False(s.session.IsAuthenticated())
	s.Equal(1, s.audits.Len())
}

func (s *ServiceSuite) TestLoginRefusesUnknownRole() {
	bad := s.john
	bad.Role = "ADMIN"
	s.authn.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&services.AuthResponse{User: bad, Token: "tok"}, nil)

	_, err := s.service.Login(s.ctx, s.authn, s.session, auth.Credentials{Email: "user@test", Password: "TestPassword1@"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.False(s.session.IsAuthenticated())
}

func (s *ServiceSuite) TestLogoutTwiceEqualsOnce() {
	s.Require().NoError(s.session.Login(s.ctx, s.john, "tok"))
	s.authn.EXPECT().Logout(gomock.Any()).Return(errors.New("upstream down"))

	s.Require().NoError(s.service.Logout(s.ctx, s.authn, s.session))
	s.False(s.session.IsAuthenticated())
	s.Require().NoError(s.service.Logout(s.ctx, s.authn, s.session))
	s.False(s.session.IsAuthenticated())
}

func (s *ServiceSuite) TestLogoutPropagatesSessionFailure() {
	sess := mocks.NewMockSession(s.ctrl)
	sess.EXPECT().Current().Return(&s.john)
	s.authn.EXPECT().Logout(gomock.Any()).Return(nil)
	sess.EXPECT().Logout(gomock.Any()).Return(dErrors.New(dErrors.CodeUnavailable, "failed to clear session"))

	err := s.service.Logout(s.ctx, s.authn, sess)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ServiceSuite) TestRefreshKeepsLocalProfile() {
	edited := s.john
	edited.Name = "Johnny Doe"
	edited.PersonalInfo = &domain.PersonalInfo{UserID: "1", FirstName: "Johnny", LastName: "Doe"}
	s.Require().NoError(s.session.Login(s.ctx, edited, "tok-1"))

	s.authn.EXPECT().RefreshToken(gomock.Any()).Return("tok-2", nil)
	s.authn.EXPECT().CurrentUser(gomock.Any()).Return(&s.john, nil)

	got, err := s.service.Refresh(s.ctx, s.authn, s.session)
	s.Require().NoError(err)
	s.Equal("Johnny Doe", got.Name)
	s.Equal("tok-2", s.session.Token())
	s.Equal("Johnny", s.session.Current().PersonalInfo.FirstName)
}

func (s *ServiceSuite) TestRefreshReadsIdentityWithRotatedToken() {
	s.Require().NoError(s.session.Login(s.ctx, s.john, "tok-1"))

	gomock.InOrder(
		s.authn.EXPECT().RefreshToken(gomock.Any()).Return("tok-2", nil),
		s.authn.EXPECT().CurrentUser(gomock.Any()).DoAndReturn(func(context.Context) (*domain.Identity, error) {
			s.Equal("tok-2", s.session.Token())
			return &s.john, nil
		}),
	)

	_, err := s.service.Refresh(s.ctx, s.authn, s.session)
	s.Require().NoError(err)
	s.Equal("tok-2", s.session.Token())
	s.True(s.session.IsAuthenticated())
}

func (s *ServiceSuite) TestRefreshRequiresSession() {
	_, err := s.service.Refresh(s.ctx, s.authn, s.session)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestRefreshRejectedEndsSession() {
	s.Require().NoError(s.session.Login(s.ctx, s.john, "tok-1"))
	s.authn.EXPECT().RefreshToken(gomock.Any()).Return("", dErrors.New(dErrors.CodeUnauthorized, "token has expired"))

	_, err := s.service.Refresh(s.ctx, s.authn, s.session)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.False(s.session.IsAuthenticated())
}
