package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycportal/internal/audit"
)

func TestListByUserMatchesSubjectAndActorNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, audit.Event{ID: "a", UserID: "1", Timestamp: base}))
	require.NoError(t, store.Append(ctx, audit.Event{ID: "b", UserID: "10", ActorID: "1", Timestamp: base.Add(time.Hour)}))
	require.NoError(t, store.Append(ctx, audit.Event{ID: "c", UserID: "2", Timestamp: base.Add(2 * time.Hour)}))

	events, err := store.ListByUser(ctx, "1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].ID)
	assert.Equal(t, "a", events[1].ID)

	limited, err := store.ListByUser(ctx, "1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
