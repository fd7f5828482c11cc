package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/splax/modulehub/internal/app/migrate"
	httpx "github.com/splax/modulehub/internal/http"
	"github.com/splax/modulehub/internal/ratelimit"
	"github.com/splax/modulehub/internal/repository"
	"github.com/splax/modulehub/internal/repository/memory"
	"github.com/splax/modulehub/internal/repository/postgres"
	"github.com/splax/modulehub/internal/service/auth"
	"github.com/splax/modulehub/internal/service/catalog"
	"github.com/splax/modulehub/internal/service/notification"
	"github.com/splax/modulehub/internal/service/subscription"
	"github.com/splax/modulehub/internal/ws"
	"github.com/splax/modulehub/pkg/config"
	"github.com/splax/modulehub/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registry HTTP and websocket server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadAPIConfig()
		log := logger.New("api", logger.ParseLevel(cfg.LogLevel))
		if err := cfg.Validate(); err != nil {
			log.Error("invalid configuration", "error", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var (
			store    repository.Store
			dbHealth func(context.Context) error
		)
		switch cfg.StoreDriver {
		case config.StoreDriverMemory:
			log.Warn("using in-memory store, data will not survive a restart")
			store = memory.New()
		default:
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				log.Error("failed to connect to database", "error", err)
				os.Exit(1)
			}
			defer pool.Close()

			runner, err := migrate.New(pool, cfg.DatabaseURL, log)
			if err != nil {
				log.Error("failed to configure migrations", "error", err)
				os.Exit(1)
			}
			if err := runner.Ping(ctx); err != nil {
				log.Error("database ping failed", "error", err)
				os.Exit(1)
			}
			if cfg.AutoMigrate {
				if err := runner.Ensure(ctx); err != nil {
					log.Error("migrations failed", "error", err)
					os.Exit(1)
				}
			} else {
				log.Info("skipping migrations on start", "hint", "run `modulehub migrate up`")
			}
			store = postgres.New(pool)
			dbHealth = pool.Ping
		}

		hub := ws.NewHub()
		defer hub.Close()

		notificationSvc := notification.New(store, ws.NewNotifier(hub), log, cfg.NotificationLimit)
		services := httpx.Services{
			Auth:          auth.New(store, store, log, cfg),
			Catalog:       catalog.New(store, notificationSvc, log),
			Subscriptions: subscription.New(store, log),
			Notifications: notificationSvc,
		}

		router := httpx.NewRouter(log, services, httpx.Options{
			Limiter:        newLimiter(ctx, cfg, log),
			Hub:            hub,
			WSWriteTimeout: cfg.WSWriteTimeout,
			DBHealth:       dbHealth,
		})
		defer router.Close()

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}

		errorCh := make(chan error, 1)
		go func() {
			log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver)
			errorCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("graceful shutdown failed", "error", err)
			}
			log.Info("api server stopped")
		case err := <-errorCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("server error", "error", err)
				os.Exit(1)
			}
		}
	},
}

func newLimiter(ctx context.Context, cfg config.APIConfig, log *slog.Logger) ratelimit.Limiter {
	addr := strings.TrimSpace(cfg.RateLimitRedisAddr)
	if addr == "" {
		return ratelimit.NewMemory()
	}
	limiter, err := ratelimit.NewRedis(ctx, addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
	if err != nil {
		log.Warn("redis rate limiter unavailable", "error", err)
		return ratelimit.NewMemory()
	}
	return limiter
}
