package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycportal/internal/audit"
	"kycportal/internal/audit/store/memory"
	"kycportal/internal/platform/logger"
	id "kycportal/pkg/domain"
	"kycportal/pkg/requestcontext"
)

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSink) Append(context.Context, audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("sink down")
}

type PublisherSuite struct {
	suite.Suite
	store *memory.InMemoryStore
	now   time.Time
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *PublisherSuite) TestEmitEnrichesFromContext() {
	pub := audit.NewPublisher(s.store,
		audit.WithLogger(logger.Discard()),
		audit.WithClock(func() time.Time { return s.now }),
	)
	ws := id.NewWorkspaceID()
	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithWorkspaceID(ctx, ws)
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "curl")

	s.Require().NoError(pub.Emit(ctx, audit.Event{UserID: "1", Action: audit.ActionLoginFailed}))

	events, err := s.store.ListByUser(ctx, "1", 0)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	e := events[0]
	s.NotEmpty(e.ID)
	s.Equal(s.now, e.Timestamp)
	s.Equal(audit.CategorySecurity, e.Category)
	s.Equal("req-1", e.RequestID)
	s.Equal(ws.String(), e.WorkspaceID)
	s.Equal("10.0.0.1", e.IP)
}

func (s *PublisherSuite) TestEmitReturnsSinkErrors() {
	pub := audit.NewPublisher(&failingSink{}, audit.WithLogger(logger.Discard()))
	s.Error(pub.Emit(context.Background(), audit.Event{Action: audit.ActionLoggedOut}))
}

func (s *PublisherSuite) TestNilPublisherIsANoOp() {
	var pub *audit.Publisher
	s.NoError(pub.Emit(context.Background(), audit.Event{Action: audit.ActionLoggedOut}))
}

func (s *PublisherSuite) TestQueuedEventsAreDrainedByWorker() {
	pub := audit.NewPublisher(s.store, audit.WithLogger(logger.Discard()), audit.WithQueue(8))
	worker := pub.Worker()
	s.Require().NotNil(worker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	for i := 0; i < 3; i++ {
		s.Require().NoError(pub.Emit(ctx, audit.Event{UserID: "2", Action: audit.ActionReviewSubmitted}))
	}
	s.Eventually(func() bool { return s.store.Len() == 3 }, time.Second, 10*time.Millisecond)

	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func (s *PublisherSuite) TestFullQueueDropsInsteadOfBlocking() {
	pub := audit.NewPublisher(s.store, audit.WithLogger(logger.Discard()), audit.WithQueue(1))
	s.NoError(pub.Emit(context.Background(), audit.Event{Action: audit.ActionLoggedOut}))
	s.NoError(pub.Emit(context.Background(), audit.Event{Action: audit.ActionLoggedOut}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = pub.Worker().Run(ctx)
	s.Equal(1, s.store.Len())
}

func (s *PublisherSuite) TestWorkerSurvivesSinkFailures() {
	sink := &failingSink{}
	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{Action: audit.ActionLoggedOut}
	inbox <- audit.Event{Action: audit.ActionLoggedOut}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = audit.NewWorker(sink, inbox, logger.Discard()).Run(ctx)
	s.Equal(2, sink.calls)
}

func (s *PublisherSuite) TestInlinePublisherHasNoWorker() {
	s.Nil(audit.NewPublisher(s.store).Worker())
}

func TestActionCategory(t *testing.T) {
	cases := map[audit.Action]audit.EventCategory{
		audit.ActionLoginSucceeded:  audit.CategoryOperations,
		audit.ActionLoginFailed:     audit.CategorySecurity,
		audit.ActionKYCSubmitted:    audit.CategoryCompliance,
		audit.ActionReviewSubmitted: audit.CategoryCompliance,
		audit.Action("whatever"):    audit.CategoryOperations,
	}
	for action, want := range cases {
		if got := action.Category(); got != want {
			t.Errorf("%s: got %s, want %s", action, got, want)
		}
	}
}
