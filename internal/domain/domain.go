package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// --- Roles and groups ---

// Role identifies the kind of actor behind a connection.
type Role string

const (
	RoleHostess Role = "hostess"
	RoleNurse   Role = "nurse"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHostess, RoleNurse, RoleAdmin:
		return true
	}
	return false
}

// Group names a broadcast target: a set of connections that receive the same
// emission. Membership is derived from connection identity, never persisted.
type Group string

func UserGroup(userID string) Group       { return Group("user:" + userID) }
func RoleGroup(role Role) Group           { return Group("role:" + string(role)) }
func WardGroup(wardID string) Group       { return Group("ward:" + wardID) }
func SessionGroup(sessionID string) Group { return Group("session:" + sessionID) }

// IsSession reports whether g is a per-session group, the only kind with a
// bounded membership.
func (g Group) IsSession() bool { return strings.HasPrefix(string(g), "session:") }

// --- Connections ---

// Identity describes the actor behind a live connection.
type Identity struct {
	UserID      string    `json:"userId"`
	Role        Role      `json:"userType"`
	EmployeeID  string    `json:"employeeId"`
	WardID      string    `json:"wardId,omitempty"`
	HospitalID  string    `json:"hospitalId,omitempty"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Groups resolves the broadcast groups this identity belongs to.
// Every actor joins their user group and role group; nurses additionally
// join their ward group so nurse alerts can be targeted.
func (id Identity) Groups() []Group {
	groups := []Group{UserGroup(id.UserID), RoleGroup(id.Role)}
	if id.Role == RoleNurse && id.WardID != "" {
		groups = append(groups, WardGroup(id.WardID))
	}
	return groups
}

// --- Delivery sessions ---

// SessionStatus is the lifecycle state of an in-progress delivery round.
type SessionStatus string

const (
	StatusActive       SessionStatus = "active"
	StatusCompleted    SessionStatus = "completed"
	StatusCancelled    SessionStatus = "cancelled"
	StatusInterrupted  SessionStatus = "interrupted"
	StatusDisconnected SessionStatus = "disconnected"
)

// QRScan records the most recent QR checkpoint scan for a session.
type QRScan struct {
	Code      string    `json:"qrCode"`
	Location  string    `json:"location"`
	ScannedAt time.Time `json:"scannedAt"`
}

// NurseResponse records a nurse acknowledging an alert.
type NurseResponse struct {
	NurseID     string    `json:"nurseId"`
	AlertID     string    `json:"alertId"`
	RespondedAt time.Time `json:"respondedAt"`
}

// AlertStatus is the lifecycle state of a nurse alert.
type AlertStatus string

const (
	AlertSent         AlertStatus = "sent"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertExpired      AlertStatus = "expired"
)

// Alert is a request for nursing attention tied to a session. At most one
// outstanding alert per session is meaningful; a new alert supersedes it.
type Alert struct {
	ID             string      `json:"alertId"`
	SessionID      string      `json:"sessionId"`
	WardID         string      `json:"wardId"`
	MealType       string      `json:"mealType,omitempty"`
	MealCount      int         `json:"mealCount"`
	Urgency        string      `json:"urgency"`
	Status         AlertStatus `json:"status"`
	SentAt         time.Time   `json:"sentAt"`
	AcknowledgedAt time.Time   `json:"acknowledgedAt,omitzero"`
	ResponderID    string      `json:"responderId,omitempty"`
}

// Session is the live, in-memory record of one in-progress delivery round.
// It mirrors but is independent from any durable record of the round.
type Session struct {
	ID         string `json:"sessionId"`
	HostessID  string `json:"hostessId"`
	WardID     string `json:"wardId"`
	HospitalID string `json:"hospitalId,omitempty"`

	Status            SessionStatus `json:"status"`
	StartedAt         time.Time     `json:"startedAt"`
	LastUpdate        time.Time     `json:"lastUpdate"`
	CurrentLocation   string        `json:"currentLocation,omitempty"`
	MealsServed       int           `json:"mealsServed"`
	MealCount         int           `json:"mealCount"`
	LastServingUpdate time.Time     `json:"lastServingUpdate,omitzero"`
	LastQRScan        *QRScan       `json:"lastQRScan,omitempty"`
	Alert             *Alert        `json:"alert,omitempty"`
	NurseResponse     *NurseResponse `json:"nurseResponse,omitempty"`
	Summary           string        `json:"summary,omitempty"`
	CompletedAt       time.Time     `json:"completedAt,omitzero"`
	DisconnectedAt    time.Time     `json:"disconnectedAt,omitzero"`

	// OwnerConn is the delivery worker's connection handle. Direct replies
	// (nurse acknowledgments) are routed here.
	OwnerConn uuid.UUID `json:"-"`
}

// IdleSince returns the reference point for staleness: the later of the
// session's start and its last update.
func (s *Session) IdleSince() time.Time {
	if s.LastUpdate.After(s.StartedAt) {
		return s.LastUpdate
	}
	return s.StartedAt
}

// --- Query surface ---

// Snapshot is a point-in-time view of coordinator state for reporting.
// No consistency is guaranteed beyond "true at some instant during the call".
type Snapshot struct {
	ConnectedUsers int       `json:"connectedUsers"`
	ActiveSessions int       `json:"activeSessions"`
	ActiveNurses   int       `json:"activeNurses"`
	Timestamp      time.Time `json:"timestamp"`
}
