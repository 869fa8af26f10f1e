// Package registry tracks the identity of every live connection and keeps
// the broadcast fabric's derived group memberships in step with it.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
)

// Registry maps connection handles to actor identities. Group membership is
// derived from identity and pushed to the fabric inside the registry's
// critical section, so membership never diverges from the identity table.
type Registry struct {
	mu         sync.RWMutex
	fabric     domain.Fabric
	identities map[uuid.UUID]domain.Identity
	nurses     int
}

func New(fabric domain.Fabric) *Registry {
	return &Registry{
		fabric:     fabric,
		identities: make(map[uuid.UUID]domain.Identity),
	}
}

// Register stores the identity for a handle and applies its derived group
// memberships. Re-registering the same handle replaces the prior identity;
// stale derived groups are left as part of the atomic membership swap.
// Returns the resolved group list.
func (r *Registry) Register(conn uuid.UUID, identity domain.Identity) []domain.Group {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.identities[conn]; exists && prev.Role == domain.RoleNurse {
		r.nurses--
	}

	r.identities[conn] = identity
	if identity.Role == domain.RoleNurse {
		r.nurses++
	}

	groups := identity.Groups()
	r.fabric.SetGroups(conn, groups)
	return groups
}

// Lookup returns the identity for a handle.
func (r *Registry) Lookup(conn uuid.UUID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, exists := r.identities[conn]
	return identity, exists
}

// Unregister removes the identity and its derived memberships, returning the
// removed identity so the caller can react (e.g. mark owned sessions
// disconnected).
func (r *Registry) Unregister(conn uuid.UUID) (domain.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, exists := r.identities[conn]
	if !exists {
		return domain.Identity{}, false
	}

	delete(r.identities, conn)
	if identity.Role == domain.RoleNurse {
		r.nurses--
	}
	r.fabric.SetGroups(conn, nil)
	return identity, true
}

// ConnectedCount returns the number of registered connections.
func (r *Registry) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

// NurseCount returns the number of registered nurse connections.
func (r *Registry) NurseCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nurses
}
