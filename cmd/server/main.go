package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"kycportal/internal/audit"
	"kycportal/internal/platform/config"
	"kycportal/internal/platform/httpserver"
	"kycportal/internal/platform/logger"
	"kycportal/internal/platform/metrics"
	"kycportal/internal/platform/middleware"
	"kycportal/internal/web"
	"kycportal/internal/workspace"
	"kycportal/pkg/platform/middleware/metadata"
	"kycportal/pkg/platform/middleware/requestid"
	"kycportal/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("kyc-portal: %v", err)
	}
}

// run wires the stores, the upstream client and the web handler, then
// serves until SIGINT or SIGTERM.
func run() error {
	cfg := config.FromEnv()
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	persister, closeSessions, err := newPersister(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeSessions)

	sink, reader, closeAudit, err := newAuditSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeAudit)
	publisher := audit.NewPublisher(sink, audit.WithLogger(logger), audit.WithQueue(256))

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Handle("/metrics", metrics.Handler())

	api, registryOpts, err := newUpstream(cfg, router, m, logger)
	if err != nil {
		return err
	}
	registry := workspace.NewRegistry(persister, api, logger, append(registryOpts, workspace.WithMetrics(m))...)

	web.New(registry, logger,
		web.WithMetrics(m),
		web.WithAuditor(publisher, reader),
		web.WithLoginLimiter(middleware.NewKeyedLimiter(cfg.LoginRatePerMinute)),
		web.WithCookie(cfg.CookieSecure, cfg.Session.TTL),
	).Register(router)

	srv := httpserver.New(cfg.Addr, router, cfg.Upstream.Timeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting kyc-portal",
			"addr", cfg.Addr,
			"session_backend", cfg.Session.Backend,
			"audit_backend", cfg.Audit.Backend,
			"auth_backend", cfg.Auth.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if worker := publisher.Worker(); worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}
	g.Go(func() error {
		return registry.StartSweeper(gctx, cfg.Workspace.SweepInterval, cfg.Workspace.IdleTimeout)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
