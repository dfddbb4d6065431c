package testutil

import (
	"net/http"
	"time"

	"kycportal/pkg/requestcontext"
)

// WithClient sets what the metadata and request-time middlewares would:
// the caller's IP, a fixed user agent and the request timestamp.
func WithClient(req *http.Request, ip string, now time.Time) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, "testutil")
	ctx = requestcontext.WithTime(ctx, now)
	return req.WithContext(ctx)
}
