package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Mobile clients connect from app webviews with no stable origin
	},
}

// inboundFrame is the wire format for client events, matching the outbound
// envelope: {"event": "...", "data": {...}}.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	handle := uuid.New()
	if err := s.svc.Attach(handle, conn); err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		return nil //nolint:nilerr // connection already closed by the hub
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()

	slog.Info("Client connected", "conn_id", handle.String())
	s.svc.EmitTo(handle, "connected", map[string]any{
		"message":      "Connected to ServiceSync real-time system",
		"connectionId": handle.String(),
		"timestamp":    s.clock.Now(),
	})

	// Read pump. Blocks until the connection closes; the hub owns all writes.
	reason := "client disconnect"
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = err.Error()
			}
			break
		}

		var inbound inboundFrame
		if err := json.Unmarshal(frame, &inbound); err != nil {
			slog.Warn("Dropping unparseable frame", "conn_id", handle.String(), "error", err)
			continue
		}

		if err := s.svc.HandleEvent(handle, inbound.Event, inbound.Data); err != nil {
			slog.Debug("Event rejected", "conn_id", handle.String(), "event", inbound.Event, "error", err)
		}
	}

	s.svc.OnDisconnect(handle, reason)
	s.svc.Detach(handle)

	return nil
}
