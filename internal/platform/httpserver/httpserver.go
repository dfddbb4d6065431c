package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 60 * time.Second
	minWriteTimeout   = 30 * time.Second
)

// New builds the portal's HTTP server. Handlers wait on the upstream API,
// so the write timeout covers a full upstream call plus its retries.
func New(addr string, handler http.Handler, upstreamTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      max(minWriteTimeout, 3*upstreamTimeout),
		IdleTimeout:       idleTimeout,
	}
}
