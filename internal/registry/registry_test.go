package registry

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
)

// fakeFabric records SetGroups calls per connection.
type fakeFabric struct {
	mu     sync.Mutex
	groups map[uuid.UUID][]domain.Group
}

func newFakeFabric() *fakeFabric {
	return &fakeFabric{groups: make(map[uuid.UUID][]domain.Group)}
}

func (f *fakeFabric) Join(uuid.UUID, domain.Group)   {}
func (f *fakeFabric) Leave(uuid.UUID, domain.Group)  {}
func (f *fakeFabric) Emit(domain.Group, string, any) {}
func (f *fakeFabric) EmitTo(uuid.UUID, string, any)  {}
func (f *fakeFabric) EmitToAll(string, any)          {}

func (f *fakeFabric) SetGroups(conn uuid.UUID, groups []domain.Group) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[conn] = groups
}

func (f *fakeFabric) groupsFor(conn uuid.UUID) []domain.Group {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups[conn]
}

func nurseIdentity(userID, wardID string) domain.Identity {
	return domain.Identity{
		UserID:     userID,
		Role:       domain.RoleNurse,
		EmployeeID: "EMP-" + userID,
		WardID:     wardID,
	}
}

func TestRegistry_RegisterResolvesGroups(t *testing.T) {
	fabric := newFakeFabric()
	reg := New(fabric)
	conn := uuid.New()

	groups := reg.Register(conn, nurseIdentity("N1", "W1"))

	expected := []domain.Group{
		domain.UserGroup("N1"),
		domain.RoleGroup(domain.RoleNurse),
		domain.WardGroup("W1"),
	}
	assert.Equal(t, expected, groups)
	assert.Equal(t, expected, fabric.groupsFor(conn))

	identity, ok := reg.Lookup(conn)
	require.True(t, ok)
	assert.Equal(t, "N1", identity.UserID)
}

func TestRegistry_HostessGetsNoWardGroup(t *testing.T) {
	reg := New(newFakeFabric())

	groups := reg.Register(uuid.New(), domain.Identity{
		UserID: "H1",
		Role:   domain.RoleHostess,
		WardID: "W1",
	})

	assert.Equal(t, []domain.Group{
		domain.UserGroup("H1"),
		domain.RoleGroup(domain.RoleHostess),
	}, groups)
}

func TestRegistry_ReRegisterReplacesIdentity(t *testing.T) {
	fabric := newFakeFabric()
	reg := New(fabric)
	conn := uuid.New()

	reg.Register(conn, nurseIdentity("N1", "W1"))
	require.Equal(t, 1, reg.NurseCount())

	reg.Register(conn, nurseIdentity("N1", "W2"))

	assert.Equal(t, 1, reg.ConnectedCount())
	assert.Equal(t, 1, reg.NurseCount())
	assert.Contains(t, fabric.groupsFor(conn), domain.WardGroup("W2"))
	assert.NotContains(t, fabric.groupsFor(conn), domain.WardGroup("W1"))
}

func TestRegistry_ReRegisterRoleChangeAdjustsNurseCount(t *testing.T) {
	reg := New(newFakeFabric())
	conn := uuid.New()

	reg.Register(conn, nurseIdentity("N1", "W1"))
	require.Equal(t, 1, reg.NurseCount())

	reg.Register(conn, domain.Identity{UserID: "N1", Role: domain.RoleAdmin})
	assert.Equal(t, 0, reg.NurseCount())
	assert.Equal(t, 1, reg.ConnectedCount())
}

func TestRegistry_Unregister(t *testing.T) {
	fabric := newFakeFabric()
	reg := New(fabric)
	conn := uuid.New()

	reg.Register(conn, nurseIdentity("N1", "W1"))

	identity, ok := reg.Unregister(conn)
	require.True(t, ok)
	assert.Equal(t, "N1", identity.UserID)
	assert.Equal(t, 0, reg.ConnectedCount())
	assert.Equal(t, 0, reg.NurseCount())
	assert.Empty(t, fabric.groupsFor(conn))

	_, ok = reg.Lookup(conn)
	assert.False(t, ok)
}

func TestRegistry_UnregisterUnknownConnection(t *testing.T) {
	reg := New(newFakeFabric())

	_, ok := reg.Unregister(uuid.New())
	assert.False(t, ok)
}
