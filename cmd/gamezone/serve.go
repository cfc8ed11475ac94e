package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"gamezone/internal/amqp"
	"gamezone/internal/auditdiff"
	"gamezone/internal/backend"
	"gamezone/internal/cache"
	"gamezone/internal/cli"
	"gamezone/internal/dashboard"
	apphttp "gamezone/internal/http"
	gzlog "gamezone/internal/log"
	"gamezone/internal/middleware/ratelimit"
	"gamezone/internal/session"
)

const (
	diffCacheSize        = 512
	cacheCleanupInterval = time.Minute
	shutdownTimeout      = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, port string) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Port = port
	}

	logger, closer := cli.SetupLogger(cfg)
	defer closer.Close()

	db, err := cli.OpenStorage(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := session.NewStorage(ctx, session.StorageConfig{
		Backend:  cfg.SessionBackend,
		TTL:      cfg.SessionTTL,
		RedisURL: cfg.RedisURL,
		DB:       db,
	}, logger.WithComponent(gzlog.ComponentSession).Logger)
	if err != nil {
		return err
	}
	if sessions.Cleanup != nil {
		defer func() {
			if err := sessions.Cleanup(); err != nil {
				logger.Error("Failed to close session storage", "error", err)
			}
		}()
	}

	client := backend.New(cfg.BackendURL, cfg.BackendTimeout, logger.WithComponent(gzlog.ComponentBackend).Logger)

	// Audit entries never change, so their rendered diffs are shared by all sessions.
	diffs := cache.NewLRUCache[auditdiff.Result](diffCacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(gzlog.ComponentCache).Logger)
	cacheManager.Register(diffs)
	if cleaner, ok := sessions.Storage.(cache.Cleaner); ok {
		cacheManager.Register(cleaner)
	}
	cacheManager.StartCleanup(cacheCleanupInterval)
	defer cacheManager.Stop()

	// Mutation events are optional; the dashboard works without a broker.
	var publisher dashboard.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, mutation events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	dashLogger := logger.WithComponent(gzlog.ComponentDashboard).Logger
	svc := dashboard.New(client, dashLogger)

	checks := map[string]func(context.Context) error{
		"sqlite": db.Ping,
	}
	if sessions.Ping != nil {
		checks["sessions"] = sessions.Ping
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Location:     cfg.Location(),
		DayLayout:    cfg.DisplayLayout,
		CookieSecure: cfg.CookieSecure,
		SessionTTL:   cfg.SessionTTL,
		RateLimit:    ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		Logger:       logger,
		Checks:       checks,
	}, apphttp.Deps{
		Sessions:  session.NewStore(sessions.Storage, client, logger.WithComponent(gzlog.ComponentSession).Logger),
		Dashboard: svc,
		Mutations: dashboard.NewMutations(client, publisher, dashLogger),
		Admins:    client,
		Diffs:     diffs,
	})

	srv.ReadTimeout = 15 * time.Second
	// Writes wait on the backend batch.
	srv.WriteTimeout = cfg.BackendTimeout + 15*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		logger.Info("Shutdown signal received", gzlog.FieldOperation, gzlog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gamezone server",
		"port", cfg.Port,
		"backend_url", cfg.BackendURL,
		"session_backend", cfg.SessionBackend,
		"amqp", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		return err
	}

	<-stopped
	logger.Info("Server stopped gracefully")
	return nil
}
