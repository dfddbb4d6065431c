package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kycportal/pkg/requestcontext"
)

func TestWithClock(t *testing.T) {
	local := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	var seen []time.Time
	h := WithClock(func() time.Time { return local })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, requestcontext.Now(r.Context()), requestcontext.Now(r.Context()))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1], "one instant per request")
	assert.Equal(t, time.UTC, seen[0].Location())
	assert.True(t, seen[0].Equal(local))
}
