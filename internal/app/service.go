// Package app wires the realtime core together: hub, registry, session
// store, event router, reaper, and the fire-and-forget archiver.
package app

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/config"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/database"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/hub"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/reaper"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/registry"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/router"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/session"
)

// Service is the coordinator facade the transport layer talks to. It owns the
// lifecycle of every core component.
type Service struct {
	hub      *hub.Hub
	registry *registry.Registry
	store    *session.Store
	router   *router.Router
	reaper   *reaper.Reaper
	archiver domain.Archiver

	rounds domain.RoundRepository
	wards  domain.WardRepository
}

// New assembles the coordinator. pool may be nil, in which case no archive
// writes happen and the REST round/ward queries are unavailable. mirror may
// be nil; when set it taps every group emission.
func New(cfg *config.Config, clock clockwork.Clock, pool *pgxpool.Pool, mirror hub.MirrorFunc) *Service {
	svc := &Service{}

	svc.archiver = noopArchiver{}
	if pool != nil {
		rounds := database.NewRoundRepo(pool)
		notifications := database.NewNotificationRepo(pool)
		svc.archiver = newDBArchiver(rounds, notifications)
		svc.rounds = rounds
		svc.wards = database.NewWardRepo(pool)
	}

	svc.hub = hub.NewHub(clock, cfg.MaxConnections, cfg.MaxClientsPerSession, cfg.WriteTimeout, mirror)
	svc.registry = registry.New(svc.hub)
	svc.store = session.NewStore(clock)
	svc.router = router.New(svc.registry, svc.store, svc.hub, svc.archiver, clock)
	svc.reaper = reaper.New(svc.store, clock, cfg.ReaperInterval, cfg.SessionTTL)
	svc.reaper.Start()

	return svc
}

// Attach hands a freshly upgraded WebSocket connection to the hub.
func (s *Service) Attach(conn uuid.UUID, connection *websocket.Conn) error {
	return s.hub.Attach(conn, connection)
}

// Detach removes a connection from the hub.
func (s *Service) Detach(conn uuid.UUID) {
	s.hub.Detach(conn)
}

// EmitTo sends an event directly to one connection.
func (s *Service) EmitTo(conn uuid.UUID, event string, payload any) {
	s.hub.EmitTo(conn, event, payload)
}

// HandleEvent processes one inbound event from a connection.
func (s *Service) HandleEvent(conn uuid.UUID, event string, data json.RawMessage) error {
	return s.router.HandleEvent(conn, event, data)
}

// OnDisconnect tears down the state tied to a closed connection.
func (s *Service) OnDisconnect(conn uuid.UUID, reason string) {
	s.router.OnDisconnect(conn, reason)
}

// Snapshot returns point-in-time coordinator counts.
func (s *Service) Snapshot() domain.Snapshot {
	return s.router.Snapshot()
}

// LiveSession returns the in-memory state of one session.
func (s *Service) LiveSession(id string) (domain.Session, bool) {
	return s.store.Get(id)
}

// StartSession creates a session on behalf of the REST surface, attributed to
// no connection. The same duplicate rules apply as for the realtime event.
func (s *Service) StartSession(conn uuid.UUID, data json.RawMessage) error {
	return s.router.HandleEvent(conn, router.EventSessionStart, data)
}

// Rounds returns the durable round repository, or nil when no database is
// configured.
func (s *Service) Rounds() domain.RoundRepository { return s.rounds }

// Wards returns the ward reference repository, or nil when no database is
// configured.
func (s *Service) Wards() domain.WardRepository { return s.wards }

// Stop shuts the coordinator down: the reaper halts, in-flight archive
// writes drain, and the hub closes every connection.
func (s *Service) Stop() {
	s.reaper.Stop()
	if archiver, ok := s.archiver.(*dbArchiver); ok {
		archiver.wait()
	}
	s.hub.Stop()
}
