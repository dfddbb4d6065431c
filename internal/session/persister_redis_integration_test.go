//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycportal/internal/domain"
	"kycportal/internal/session"
	id "kycportal/pkg/domain"
	"kycportal/pkg/platform/sentinel"
	"kycportal/pkg/testutil/containers"
)

type RedisPersisterSuite struct {
	suite.Suite
	redis     *containers.RedisContainer
	persister *session.RedisPersister
}

func TestRedisPersisterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisPersisterSuite))
}

func (s *RedisPersisterSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.persister = session.NewRedisPersister(s.redis.Client, time.Minute)
}

func (s *RedisPersisterSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisPersisterSuite) TestRoundTripThroughStore() {
	ctx := context.Background()
	ws := id.NewWorkspaceID()
	store := session.NewStore(ws, s.persister)

	s.Require().NoError(store.Login(ctx, domain.Identity{ID: "2", Name: "Jane Smith", Role: domain.RoleOfficer}, "tok-2"))

	restored := session.NewStore(ws, s.persister)
	s.Require().NoError(restored.Rehydrate(ctx))
	s.Equal("tok-2", restored.Token())

	ttl, err := s.redis.Client.TTL(ctx, "kyc:session:"+ws.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	s.Require().NoError(restored.Logout(ctx))
	_, err = s.persister.Load(ctx, ws)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
