// Package router is the protocol state machine: it validates inbound events,
// mutates the registry and session store, and drives broadcast emissions.
package router

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/metrics"
)

const serverName = "ServiceSync Backend v1.0"

// Router dispatches inbound events to their handlers. Handlers never block on
// I/O: durable writes go through the archiver, which hands off to background
// workers.
type Router struct {
	registry domain.Registry
	store    domain.SessionStore
	fabric   domain.Fabric
	archiver domain.Archiver
	clock    clockwork.Clock
}

func New(registry domain.Registry, store domain.SessionStore, fabric domain.Fabric, archiver domain.Archiver, clock clockwork.Clock) *Router {
	return &Router{
		registry: registry,
		store:    store,
		fabric:   fabric,
		archiver: archiver,
		clock:    clock,
	}
}

// HandleEvent processes one inbound event from a connection. A failure in one
// event never propagates beyond an error reply to the sender; panics are
// contained here so one connection cannot take down the others.
func (r *Router) HandleEvent(conn uuid.UUID, event string, data json.RawMessage) (err error) {
	start := r.clock.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Event handler panic recovered", "event", event, "conn_id", conn.String(), "panic", rec)
			err = fmt.Errorf("handler panic: %v", rec)
			metrics.RouterEventsTotal.WithLabelValues(event, "panic").Inc()
		}
		metrics.RouterEventDuration.WithLabelValues(event).Observe(r.clock.Since(start).Seconds())
	}()

	var handlerErr error
	switch event {
	case EventRegister:
		handlerErr = r.handleRegister(conn, data)
	case EventSessionStart:
		handlerErr = r.handleSessionStart(conn, data)
	case EventLocationUpdate:
		handlerErr = r.handleLocationUpdate(conn, data)
	case EventNurseAlert:
		handlerErr = r.handleNurseAlert(conn, data)
	case EventAcknowledgeAlert:
		handlerErr = r.handleAcknowledgeAlert(conn, data)
	case EventQRScan:
		handlerErr = r.handleQRScan(conn, data)
	case EventServingUpdate:
		handlerErr = r.handleServingUpdate(conn, data)
	case EventSessionComplete:
		handlerErr = r.handleSessionComplete(conn, data)
	case EventEmergency:
		handlerErr = r.handleEmergency(conn, data)
	case EventStatusQuery:
		handlerErr = r.handleStatusQuery(conn)
	default:
		slog.Warn("Unknown event type", "event", event, "conn_id", conn.String())
		metrics.RouterEventsTotal.WithLabelValues(event, "unknown").Inc()
		return nil
	}

	result := "ok"
	if handlerErr != nil {
		result = "rejected"
	}
	metrics.RouterEventsTotal.WithLabelValues(event, result).Inc()
	return handlerErr
}

// OnDisconnect tears down a connection: the identity leaves the registry and
// every active session it owns is marked disconnected, with one notification
// to the administrator group per session.
func (r *Router) OnDisconnect(conn uuid.UUID, reason string) {
	now := r.clock.Now()

	identity, registered := r.registry.Unregister(conn)
	if !registered {
		slog.Debug("Unregistered connection disconnected", "conn_id", conn.String(), "reason", reason)
		return
	}

	slog.Info("User disconnected",
		"employee_id", identity.EmployeeID,
		"role", string(identity.Role),
		"reason", reason,
	)

	for _, sessionID := range r.store.OwnedBy(conn) {
		session, err := r.store.Update(sessionID, func(s *domain.Session) {
			if s.Status == domain.StatusActive {
				s.Status = domain.StatusDisconnected
				s.DisconnectedAt = now
			}
		})
		if err != nil || session.Status != domain.StatusDisconnected {
			continue
		}

		r.fabric.Emit(domain.RoleGroup(domain.RoleAdmin), EventHostessDisconnected, hostessDisconnectedPayload{
			SessionID:      sessionID,
			HostessID:      session.HostessID,
			DisconnectedAt: now,
			Reason:         reason,
			Timestamp:      now,
		})
	}
}

// Snapshot returns point-in-time coordinator counts.
func (r *Router) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		ConnectedUsers: r.registry.ConnectedCount(),
		ActiveSessions: r.store.Len(),
		ActiveNurses:   r.registry.NurseCount(),
		Timestamp:      r.clock.Now(),
	}
}

// --- Handlers ---

func (r *Router) handleRegister(conn uuid.UUID, data json.RawMessage) error {
	var payload registerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventRegister, err)
	}
	if payload.UserID == "" || !payload.UserType.Valid() {
		r.replyError(conn, EventSessionError, "invalid registration payload", "")
		return fmt.Errorf("invalid registration payload")
	}

	now := r.clock.Now()
	identity := domain.Identity{
		UserID:      payload.UserID,
		Role:        payload.UserType,
		EmployeeID:  payload.EmployeeID,
		WardID:      payload.WardID,
		HospitalID:  payload.HospitalID,
		ConnectedAt: now,
	}

	groups := r.registry.Register(conn, identity)

	slog.Info("User registered",
		"employee_id", payload.EmployeeID,
		"role", string(payload.UserType),
		"ward_id", payload.WardID,
	)

	r.fabric.EmitTo(conn, EventRegistered, registeredPayload{
		Success:   true,
		UserType:  payload.UserType,
		Groups:    groups,
		Message:   "Registered as " + string(payload.UserType),
		Timestamp: now,
	})
	return nil
}

func (r *Router) handleSessionStart(conn uuid.UUID, data json.RawMessage) error {
	var payload sessionStartPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventSessionStart, err)
	}

	now := r.clock.Now()
	session := domain.Session{
		ID:         payload.SessionID,
		HostessID:  payload.HostessID,
		WardID:     payload.WardID,
		HospitalID: payload.HospitalID,
		Status:     domain.StatusActive,
		StartedAt:  now,
		LastUpdate: now,
		MealCount:  payload.MealCount,
		OwnerConn:  conn,
	}

	if err := r.store.Create(&session); err != nil {
		r.replyError(conn, EventSessionError, "session already exists", payload.SessionID)
		return err
	}

	r.fabric.Join(conn, domain.SessionGroup(payload.SessionID))

	r.fabric.Emit(domain.RoleGroup(domain.RoleAdmin), EventSessionStarted, sessionStartedPayload{
		SessionID: payload.SessionID,
		HostessID: payload.HostessID,
		WardID:    payload.WardID,
		MealCount: payload.MealCount,
		StartedAt: now,
		Message:   "New meal delivery session started",
		Timestamp: now,
	})

	r.archiver.SessionStarted(session)

	slog.Info("Session started", "session_id", payload.SessionID, "hostess_id", payload.HostessID)
	return nil
}

func (r *Router) handleLocationUpdate(conn uuid.UUID, data json.RawMessage) error {
	var payload locationUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventLocationUpdate, err)
	}

	now := r.clock.Now()
	session, err := r.store.Update(payload.SessionID, func(s *domain.Session) {
		s.CurrentLocation = payload.Location
		s.LastUpdate = now
	})
	if err != nil {
		r.replyError(conn, EventSessionError, "session not found", payload.SessionID)
		return err
	}

	r.fabric.Emit(domain.SessionGroup(payload.SessionID), EventHostessLocation, hostessLocationPayload{
		SessionID:   payload.SessionID,
		Location:    payload.Location,
		Coordinates: payload.Coordinates,
		Timestamp:   now,
	})
	r.fabric.Emit(domain.RoleGroup(domain.RoleAdmin), EventHostessLocation, hostessLocationPayload{
		SessionID:   payload.SessionID,
		HostessID:   session.HostessID,
		Location:    payload.Location,
		Coordinates: payload.Coordinates,
		Timestamp:   now,
	})
	return nil
}

func (r *Router) handleNurseAlert(conn uuid.UUID, data json.RawMessage) error {
	var payload nurseAlertPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventNurseAlert, err)
	}
	if payload.Urgency == "" {
		payload.Urgency = "normal"
	}

	now := r.clock.Now()
	alert := domain.Alert{
		ID:        fmt.Sprintf("ALERT_%d", now.UnixMilli()),
		SessionID: payload.SessionID,
		WardID:    payload.WardID,
		MealType:  payload.MealType,
		MealCount: payload.MealCount,
		Urgency:   payload.Urgency,
		Status:    domain.AlertSent,
		SentAt:    now,
	}

	// A new alert supersedes any outstanding one on the same session.
	session, err := r.store.Update(payload.SessionID, func(s *domain.Session) {
		copied := alert
		s.Alert = &copied
	})
	if err != nil {
		r.replyError(conn, EventAlertError, "Session not found", payload.SessionID)
		return err
	}

	out := nurseAlertOutPayload{Alert: alert, HostessID: session.HostessID, Timestamp: now}
	r.fabric.Emit(domain.WardGroup(payload.WardID), EventNurseAlertOut, out)
	r.fabric.Emit(domain.RoleGroup(domain.RoleAdmin), EventNurseAlertOut, out)

	r.fabric.EmitTo(conn, EventAlertSent, alertSentPayload{
		AlertID:   alert.ID,
		SentAt:    now,
		Message:   "Nurse alert sent successfully",
		Timestamp: now,
	})

	r.archiver.AlertRaised(alert, session.HostessID)

	slog.Info("Nurse alert sent", "alert_id", alert.ID, "session_id", payload.SessionID, "ward_id", payload.WardID)
	return nil
}

func (r *Router) handleAcknowledgeAlert(conn uuid.UUID, data json.RawMessage) error {
	var payload acknowledgeAlertPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventAcknowledgeAlert, err)
	}

	now := r.clock.Now()
	var acknowledged bool
	session, err := r.store.Update(payload.SessionID, func(s *domain.Session) {
		if s.Alert == nil || s.Alert.Status != domain.AlertSent {
			return
		}
		s.Alert.Status = domain.AlertAcknowledged
		s.Alert.AcknowledgedAt = now
		s.Alert.ResponderID = payload.NurseID
		s.NurseResponse = &domain.NurseResponse{
			NurseID:     payload.NurseID,
			AlertID:     payload.AlertID,
			RespondedAt: now,
		}
		acknowledged = true
	})
	if err != nil {
		r.replyError(conn, EventSessionError, "session not found", payload.SessionID)
		return err
	}
	if !acknowledged {
		r.replyError(conn, EventAlertError, "no outstanding alert", payload.SessionID)
		return domain.ErrNoOutstandingAlert
	}

	r.fabric.EmitTo(session.OwnerConn, EventNurseResponse, nurseResponsePayload{
		SessionID:   payload.SessionID,
		NurseID:     payload.NurseID,
		RespondedAt: now,
		Message:     "Nurse acknowledged and is ready",
		Timestamp:   now,
	})
	r.fabric.Emit(domain.RoleGroup(domain.RoleAdmin), EventNurseResponse, nurseResponsePayload{
		SessionID:   payload.SessionID,
		NurseID:     payload.NurseID,
		AlertID:     payload.AlertID,
		RespondedAt: now,
		Timestamp:   now,
	})

	slog.Info("Nurse acknowledgment", "nurse_id", payload.NurseID, "alert_id", payload.AlertID)
	return nil
}

func (r *Router) handleQRScan(conn uuid.UUID, data json.RawMessage) error {
	var payload qrScanPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventQRScan, err)
	}

	now := r.clock.Now()
	scannedAt := now
	if payload.Timestamp != nil {
		scannedAt = *payload.Timestamp
	}

	session, err := r.store.Update(payload.SessionID, func(s *domain.Session) {
		s.LastQRScan = &domain.QRScan{
			Code:      payload.QRCode,
			Location:  payload.Location,
			ScannedAt: scannedAt,
		}
	})
	if err != nil {
		r.replyError(conn, EventSessionError, "session not found", payload.SessionID)
		return err
	}

	out := qrScannedPayload{
		SessionID: payload.SessionID,
		HostessID: session.HostessID,
		QRCode:    payload.QRCode,
		Location:  payload.Location,
		ScannedAt: scannedAt,
		Timestamp: now,
	}
	r.fabric.Emit(domain.SessionGroup(payload.SessionID), EventQRScanned, out)
	r.fabric.Emit(domain.RoleGroup(domain.RoleAdmin), EventQRScanned, out)
	return nil
}

func (r *Router) handleServingUpdate(conn uuid.UUID, data json.RawMessage) error {
	var payload servingUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventServingUpdate, err)
	}

	now := r.clock.Now()
	session, err := r.store.Update(payload.SessionID, func(s *domain.Session) {
		s.MealsServed = payload.MealsServed
		if payload.TotalMeals > 0 {
			s.MealCount = payload.TotalMeals
		}
		s.LastServingUpdate = now
	})
	if err != nil {
		r.replyError(conn, EventSessionError, "session not found", payload.SessionID)
		return err
	}

	progress := servingProgress(payload.MealsServed, payload.TotalMeals)

	r.fabric.Emit(domain.SessionGroup(payload.SessionID), EventServingProgress, servingProgressPayload{
		SessionID:      payload.SessionID,
		MealsServed:    payload.MealsServed,
		TotalMeals:     payload.TotalMeals,
		Progress:       progress,
		CurrentPatient: payload.CurrentPatient,
		Timestamp:      now,
	})
	r.fabric.Emit(domain.RoleGroup(domain.RoleAdmin), EventServingProgress, servingProgressPayload{
		SessionID:   payload.SessionID,
		HostessID:   session.HostessID,
		MealsServed: payload.MealsServed,
		TotalMeals:  payload.TotalMeals,
		Progress:    progress,
		Timestamp:   now,
	})
	return nil
}

func (r *Router) handleSessionComplete(conn uuid.UUID, data json.RawMessage) error {
	var payload sessionCompletePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventSessionComplete, err)
	}

	now := r.clock.Now()
	completedAt := now
	if payload.CompletedAt != nil {
		completedAt = *payload.CompletedAt
	}

	session, err := r.store.Update(payload.SessionID, func(s *domain.Session) {
		s.Status = domain.StatusCompleted
		s.CompletedAt = completedAt
		s.Summary = payload.Summary
		s.LastUpdate = now
	})
	if err != nil {
		r.replyError(conn, EventSessionError, "session not found", payload.SessionID)
		return err
	}

	// Client-supplied completion times are not trusted to be after the start.
	duration := completedAt.Sub(session.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	r.fabric.Emit(domain.SessionGroup(payload.SessionID), EventSessionCompleted, sessionCompletedPayload{
		SessionID:   payload.SessionID,
		CompletedAt: completedAt,
		Summary:     payload.Summary,
		DurationMs:  duration,
		Timestamp:   now,
	})
	r.fabric.Emit(domain.RoleGroup(domain.RoleAdmin), EventSessionCompleted, sessionCompletedPayload{
		SessionID:   payload.SessionID,
		HostessID:   session.HostessID,
		CompletedAt: completedAt,
		Summary:     payload.Summary,
		DurationMs:  duration,
		Timestamp:   now,
	})

	r.archiver.SessionCompleted(session)

	slog.Info("Session completed", "session_id", payload.SessionID, "hostess_id", session.HostessID)
	return nil
}

func (r *Router) handleEmergency(conn uuid.UUID, data json.RawMessage) error {
	var payload emergencyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return r.malformed(conn, EventEmergency, err)
	}

	now := r.clock.Now()
	r.fabric.EmitToAll(EventEmergencyAlert, emergencyAlertPayload{
		ID:          fmt.Sprintf("EMERGENCY_%d", now.UnixMilli()),
		SessionID:   payload.SessionID,
		Type:        payload.Type,
		Description: payload.Description,
		Location:    payload.Location,
		Status:      "active",
		Timestamp:   now,
	})

	slog.Warn("Emergency alert broadcast",
		"type", payload.Type,
		"location", payload.Location,
		"session_id", payload.SessionID,
	)
	return nil
}

func (r *Router) handleStatusQuery(conn uuid.UUID) error {
	snapshot := r.Snapshot()
	r.fabric.EmitTo(conn, EventSystemStatus, systemStatusPayload{
		Snapshot: snapshot,
		Server:   serverName,
	})
	return nil
}

type systemStatusPayload struct {
	domain.Snapshot
	Server string `json:"server"`
}

// --- Helpers ---

func servingProgress(served, total int) int {
	if total <= 0 {
		return 0
	}
	ratio := float64(served) / float64(total) * 100
	return int(ratio + 0.5)
}

func (r *Router) replyError(conn uuid.UUID, event, message, sessionID string) {
	r.fabric.EmitTo(conn, event, errorPayload{
		Message:   message,
		SessionID: sessionID,
		Timestamp: r.clock.Now(),
	})
}

func (r *Router) malformed(conn uuid.UUID, event string, err error) error {
	slog.Warn("Malformed event payload", "event", event, "conn_id", conn.String(), "error", err)
	r.replyError(conn, EventSessionError, "malformed payload", "")
	return fmt.Errorf("malformed %s payload: %w", event, err)
}
