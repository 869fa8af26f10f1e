// Package server is the transport layer: the WebSocket endpoint feeding the
// event router, plus the REST and observability surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/app"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/config"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/errors"
)

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	clock     clockwork.Clock
	svc       *app.Service
	db        *pgxpool.Pool
	redis     *goredis.Client
	startTime time.Time
}

// NewServer builds the HTTP layer. db and redis may be nil; readiness checks
// cover only the collaborators actually configured.
func NewServer(cfg *config.Config, clock clockwork.Clock, svc *app.Service, db *pgxpool.Pool, redis *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(errors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		clock:     clock,
		svc:       svc,
		db:        db,
		redis:     redis,
		startTime: clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
