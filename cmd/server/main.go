package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/app"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/config"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/database"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/hub"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/logging"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/relay"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	slog.Info("Redis connected")
	return client
}

func runGracefulShutdown(srv *server.Server, svc *app.Service, eventRelay *relay.Relay) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		svc.Stop()
		if eventRelay != nil {
			eventRelay.Stop()
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	// Durable store is optional: the realtime core is self-contained in memory.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool = setupDB(cfg)
		defer pool.Close()
	} else {
		slog.Warn("DATABASE_URL not set, running without durable store")
	}

	// Redis relay is optional: when configured, admin-facing events are
	// mirrored to a pub/sub channel for out-of-process consumers.
	var redisClient *goredis.Client
	var eventRelay *relay.Relay
	var mirror hub.MirrorFunc
	if cfg.RedisURL != "" {
		redisClient = setupRedis(cfg)
		defer func() { _ = redisClient.Close() }()

		eventRelay = relay.New(redisClient, domain.RoleGroup(domain.RoleAdmin))
		mirror = eventRelay.Mirror
	}

	svc := app.New(cfg, clock, pool, mirror)

	srv := server.NewServer(cfg, clock, svc, pool, redisClient)

	done := runGracefulShutdown(srv, svc, eventRelay)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
