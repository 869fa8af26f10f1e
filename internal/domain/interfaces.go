package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Fabric is the grouped-broadcast primitive the router emits through.
// Delivery is fire-and-forget and best-effort: no acknowledgment, no retry.
// Emitting to an empty or unknown group is a no-op.
type Fabric interface {
	Join(conn uuid.UUID, group Group)
	Leave(conn uuid.UUID, group Group)
	// SetGroups atomically replaces a connection's derived memberships
	// (user/role/ward groups). Session groups joined separately via Join
	// are left untouched.
	SetGroups(conn uuid.UUID, groups []Group)
	Emit(group Group, event string, payload any)
	EmitTo(conn uuid.UUID, event string, payload any)
	EmitToAll(event string, payload any)
}

// Registry tracks which actors are currently connected and resolves their
// group memberships against the Fabric.
type Registry interface {
	// Register stores the identity for a handle, replacing any prior entry,
	// and applies the derived group memberships. Returns the resolved groups.
	Register(conn uuid.UUID, identity Identity) []Group
	Lookup(conn uuid.UUID) (Identity, bool)
	// Unregister removes the identity and all derived memberships, returning
	// the removed identity so the caller can react to it.
	Unregister(conn uuid.UUID) (Identity, bool)
	ConnectedCount() int
	NurseCount() int
}

// SessionStore holds the live state of every delivery round in progress.
// All mutation goes through Update so changes to a single session are
// serialized.
type SessionStore interface {
	Create(session *Session) error
	Get(id string) (Session, bool)
	Update(id string, mutate func(*Session)) (Session, error)
	Remove(id string) bool
	// ScanStale returns ids of sessions whose idle time exceeds threshold.
	ScanStale(threshold time.Duration) []string
	OwnedBy(conn uuid.UUID) []string
	Len() int
}

// Archiver receives copies of core state changes for durable persistence.
// Calls must never block the router: implementations hand off to background
// workers.
type Archiver interface {
	SessionStarted(session Session)
	SessionCompleted(session Session)
	AlertRaised(alert Alert, hostessID string)
}

// --- Durable store (adjacent CRUD, outside the realtime core) ---

// Ward is a hospital ward as stored durably.
type Ward struct {
	ID         string    `json:"id"`
	HospitalID string    `json:"hospitalId"`
	Name       string    `json:"name"`
	Floor      string    `json:"floor,omitempty"`
	BedCount   int       `json:"bedCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RoundRecord is the durable record of a delivery round.
type RoundRecord struct {
	ID          string        `json:"id"`
	HostessID   string        `json:"hostessId"`
	WardID      string        `json:"wardId"`
	HospitalID  string        `json:"hospitalId,omitempty"`
	Status      SessionStatus `json:"status"`
	MealCount   int           `json:"mealCount"`
	MealsServed int           `json:"mealsServed"`
	Summary     string        `json:"summary,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt,omitzero"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// RoundRepository persists delivery rounds.
type RoundRepository interface {
	Insert(ctx context.Context, record RoundRecord) error
	MarkCompleted(ctx context.Context, id string, completedAt time.Time, mealsServed int, summary string) error
	GetByID(ctx context.Context, id string) (*RoundRecord, error)
	ListByWard(ctx context.Context, wardID string, limit int) ([]RoundRecord, error)
}

// NotificationRepository persists nurse alert history.
type NotificationRepository interface {
	Insert(ctx context.Context, alert Alert, hostessID string) error
}

// WardRepository reads ward reference data.
type WardRepository interface {
	List(ctx context.Context) ([]Ward, error)
	GetByID(ctx context.Context, id string) (*Ward, error)
}
