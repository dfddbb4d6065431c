package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"kycportal/internal/domain"
	"kycportal/internal/platform/logger"
)

type SelectionSuite struct {
	suite.Suite
	store   *Store
	officer domain.Identity
	user    domain.Identity
	alice   domain.Client
	bob     domain.Client
}

func TestSelectionSuite(t *testing.T) {
	suite.Run(t, new(SelectionSuite))
}

func (s *SelectionSuite) SetupTest() {
	s.store = NewStore(logger.Discard())
	s.officer = domain.Identity{ID: "2", Role: domain.RoleOfficer}
	s.user = domain.Identity{ID: "1", Role: domain.RoleNormalUser}
	s.alice = domain.Client{ID: "10", Name: "Alice", KYCStatus: domain.KYCPending}
	s.bob = domain.Client{ID: "11", Name: "Bob", KYCStatus: domain.KYCApproved}
}

func (s *SelectionSuite) TestSelectOverwritesAndClear() {
	_, ok := s.store.Selected()
	s.False(ok)

	s.store.Select(s.alice)
	s.store.Select(s.bob)
	got, ok := s.store.Selected()
	s.True(ok)
	s.Equal("Bob", got.Name)

	s.store.Clear()
	_, ok = s.store.Selected()
	s.False(ok)
}

func (s *SelectionSuite) TestSelectedIsACopy() {
	s.store.Select(s.alice)
	got, _ := s.store.Selected()
	got.Name = "Mallory"

	again, _ := s.store.Selected()
	s.Equal("Alice", again.Name)
}

func (s *SelectionSuite) TestResolveTarget() {
	ctx := context.Background()

	s.Run("falls back to self without selection or route id", func() {
		t := s.store.ResolveTarget(ctx, s.officer, "")
		s.Equal(SourceSelf, t.Source)
		s.True(t.IsSelf(&s.officer))
	})

	s.Run("route id wins", func() {
		t := s.store.ResolveTarget(ctx, s.officer, "10")
		s.Equal(SourceRoute, t.Source)
		s.Equal("10", t.UserID.String())
		s.Nil(t.Client)
	})

	s.Run("selection is used when no route id is present", func() {
		s.store.Select(s.alice)
		t := s.store.ResolveTarget(ctx, s.officer, "")
		s.Equal(SourceSelection, t.Source)
		s.Equal(s.alice.ID, t.UserID)
		s.False(t.IsSelf(&s.officer))
	})

	s.Run("matching selection is attached to a route target", func() {
		s.store.Select(s.alice)
		t := s.store.ResolveTarget(ctx, s.officer, "10")
		s.Require().NotNil(t.Client)
		s.Equal("Alice", t.Client.Name)
	})

	s.Run("mismatched selection is ignored without failing", func() {
		s.store.Select(s.bob)
		t := s.store.ResolveTarget(ctx, s.officer, "10")
		s.Equal("10", t.UserID.String())
		s.Nil(t.Client)
	})

	s.Run("normal users never target a selection", func() {
		s.store.Select(s.alice)
		t := s.store.ResolveTarget(ctx, s.user, "")
		s.Equal(SourceSelf, t.Source)
		s.Equal(s.user.ID, t.UserID)
	})
}
