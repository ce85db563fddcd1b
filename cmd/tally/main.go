package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/auth"
	"tally/internal/cache"
	"tally/internal/config"
	apphttp "tally/internal/http"
	"tally/internal/services"
	"tally/internal/storage"
)

const sessionSweepInterval = time.Hour

func main() {
	// Load .env for local development; in production the environment is
	// already populated.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provisioner := services.NewProvisioner(store, cfg.SuperadminPassword, cfg.BcryptCost, logger)
	if err := provisioner.Run(ctx); err != nil {
		logger.Error("provisioning failed", "error", err)
		os.Exit(1)
	}

	// The event stream is optional: without AMQP the server still runs,
	// it just produces no audit trail.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
	} else {
		logger.Info("AMQP disabled, expense events will not be published")
	}

	resolver := auth.NewResolver(store, cfg.SessionTTL, cfg.SessionCacheTTL, cfg.SessionCacheSize, logger)

	cacheManager := cache.NewManager()
	cacheManager.Register(resolver.Cache())
	cacheManager.StartCleanup(cfg.SessionCacheTTL)
	defer cacheManager.Stop()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:          ":" + cfg.Port,
		SecureCookies: cfg.SecureCookies,
		SessionTTL:    cfg.SessionTTL,
		Accounts:      services.NewAccountService(store, cfg.SessionTTL, cfg.BcryptCost, logger),
		Expenses:      services.NewExpenseService(store, publisher),
		Dashboards:    services.NewDashboardService(store),
		Menus:         services.NewMenuService(store),
		Admin:         services.NewAdminService(store, resolver),
		Resolver:      resolver,
		Logger:        logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := store.CleanExpiredSessions(ctx, time.Now().UTC()); err != nil {
					logger.Error("session sweep failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
