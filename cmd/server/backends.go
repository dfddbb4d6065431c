package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"kycportal/internal/audit"
	auditkafka "kycportal/internal/audit/store/kafka"
	"kycportal/internal/audit/store/memory"
	auditpostgres "kycportal/internal/audit/store/postgres"
	"kycportal/internal/auth"
	"kycportal/internal/mockapi"
	"kycportal/internal/platform/config"
	"kycportal/internal/platform/kafka"
	"kycportal/internal/platform/metrics"
	"kycportal/internal/platform/postgres"
	"kycportal/internal/platform/redis"
	"kycportal/internal/services"
	"kycportal/internal/session"
	"kycportal/internal/transport/apiclient"
	"kycportal/internal/workspace"
	"kycportal/pkg/platform/circuit"
)

func newPersister(ctx context.Context, cfg config.Server) (session.Persister, func(), error) {
	switch cfg.Session.Backend {
	case config.BackendMemory:
		return session.NewMemoryPersister(), func() {}, nil
	case config.BackendRedis:
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisPersister(client, cfg.Session.TTL), func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		db, err := postgres.OpenSQL(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		p := session.NewPostgresPersister(db, cfg.Session.TTL)
		if err := p.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return p, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// newAuditSink returns the configured sink and, when the sink can be
// queried, the reader behind the activity page.
func newAuditSink(ctx context.Context, cfg config.Server, logger *slog.Logger) (audit.Sink, audit.Reader, func(), error) {
	switch cfg.Audit.Backend {
	case config.BackendMemory:
		store := memory.NewInMemoryStore()
		return store, store, func() {}, nil
	case config.BackendKafka:
		producer, err := kafka.NewProducer(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.Topic, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return auditkafka.NewSink(producer), nil, producer.Close, nil
	case config.BackendPostgres:
		pool, err := postgres.OpenPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		store := auditpostgres.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return store, store, pool.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

// newUpstream builds the API client. Without an upstream URL the mock API
// is mounted at /api on router and the client calls back into it.
func newUpstream(cfg config.Server, router chi.Router, m *metrics.Metrics, logger *slog.Logger) (*apiclient.Client, []workspace.Option, error) {
	baseURL := cfg.Upstream.BaseURL
	var (
		backend *mockapi.Backend
		tokens  *mockapi.TokenIssuer
	)
	if baseURL == "" {
		var err error
		backend, err = mockapi.NewBackend(nil, bcrypt.DefaultCost, time.Now)
		if err != nil {
			return nil, nil, err
		}
		tokens = mockapi.NewTokenIssuer(cfg.JWTSigningKey, cfg.Auth.TokenTTL, time.Now)
		router.Mount("/api", mockapi.New(backend, tokens, logger).Routes())
		baseURL = selfURL(cfg.Addr) + "/api"
		logger.Info("serving built-in mock API", "base_url", baseURL)
	}

	api, err := apiclient.New(baseURL, cfg.Upstream.Timeout, logger,
		apiclient.WithMetrics(m),
		apiclient.WithBreaker(circuit.New("upstream")),
	)
	if err != nil {
		return nil, nil, err
	}

	var opts []workspace.Option
	switch cfg.Auth.Backend {
	case config.AuthRemote:
	case config.AuthMock:
		if backend == nil {
			return nil, nil, fmt.Errorf("AUTH_BACKEND=mock requires the built-in mock API (unset UPSTREAM_BASE_URL)")
		}
		opts = append(opts, workspace.WithAuthenticator(func(sess *session.Store, _ *services.Services) auth.Authenticator {
			return mockapi.NewLocalAuthenticator(backend, tokens, sess)
		}))
	default:
		return nil, nil, fmt.Errorf("unknown auth backend %q", cfg.Auth.Backend)
	}
	return api, opts, nil
}

func selfURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}
