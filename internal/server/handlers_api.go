package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/errors"
)

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Snapshot())
}

// handleGetSession serves the live in-memory state when the round is still
// tracked, falling back to the durable record once the reaper has evicted it.
func (s *Server) handleGetSession(c echo.Context) error {
	id := c.Param("id")

	if session, ok := s.svc.LiveSession(id); ok {
		return c.JSON(http.StatusOK, session)
	}

	rounds := s.svc.Rounds()
	if rounds == nil {
		return errors.NotFoundError("session not found").WithField("session_id", id)
	}

	record, err := rounds.GetByID(c.Request().Context(), id)
	if stderrors.Is(err, domain.ErrRoundNotFound) {
		return errors.NotFoundError("session not found").WithField("session_id", id)
	}
	if err != nil {
		return errors.InternalError("failed to load session", err)
	}
	return c.JSON(http.StatusOK, record)
}

type startSessionRequest struct {
	SessionID  string `json:"sessionId"`
	HostessID  string `json:"hostessId"`
	WardID     string `json:"wardId"`
	HospitalID string `json:"hospitalId"`
	MealCount  int    `json:"mealCount"`
	MealType   string `json:"mealType"`
}

// handleStartSession starts a round on behalf of a non-realtime caller. The
// round has no owning connection until the hostess registers over WebSocket.
func (s *Server) handleStartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError("invalid request body")
	}
	if req.SessionID == "" || req.HostessID == "" || req.WardID == "" {
		return errors.ValidationError("sessionId, hostessId and wardId are required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return errors.InternalError("failed to encode session payload", err)
	}

	if err := s.svc.StartSession(uuid.New(), payload); err != nil {
		if stderrors.Is(err, domain.ErrDuplicateSession) {
			return errors.ConflictError("session already exists").WithField("session_id", req.SessionID)
		}
		return errors.InternalError("failed to start session", err)
	}

	session, _ := s.svc.LiveSession(req.SessionID)
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) handleListWards(c echo.Context) error {
	wards := s.svc.Wards()
	if wards == nil {
		return errors.NotFoundError("ward directory not available")
	}

	list, err := wards.List(c.Request().Context())
	if err != nil {
		return errors.InternalError("failed to list wards", err)
	}
	if list == nil {
		list = []domain.Ward{}
	}
	return c.JSON(http.StatusOK, list)
}

const wardSessionsLimit = 50

func (s *Server) handleListWardSessions(c echo.Context) error {
	rounds := s.svc.Rounds()
	if rounds == nil {
		return errors.NotFoundError("session history not available")
	}

	records, err := rounds.ListByWard(c.Request().Context(), c.Param("id"), wardSessionsLimit)
	if err != nil {
		return errors.InternalError("failed to list ward sessions", err)
	}
	if records == nil {
		records = []domain.RoundRecord{}
	}
	return c.JSON(http.StatusOK, records)
}
