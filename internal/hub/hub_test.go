package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
)

// newTestConnPair creates a connected pair of WebSocket connections for testing.
func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

func testHub(t *testing.T, maxConns int, mirror MirrorFunc) *Hub {
	t.Helper()
	h := NewHub(clockwork.NewRealClock(), maxConns, 10, 5*time.Second, mirror)
	t.Cleanup(func() { h.Stop() })
	return h
}

// attachClient attaches a fresh server-side connection and returns the handle
// plus the client end for reading.
func attachClient(t *testing.T, h *Hub) (uuid.UUID, *ws.Conn) {
	t.Helper()
	server, client := newTestConnPair(t)
	handle := uuid.New()
	require.NoError(t, h.Attach(handle, server))
	return handle, client
}

func readEnvelope(t *testing.T, conn *ws.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func waitForClientCount(h *Hub, expected int) bool {
	for range 100 {
		if h.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func waitForGroupSize(h *Hub, group domain.Group, expected int) bool {
	for range 100 {
		if h.GroupSize(group) == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestHub_AttachAndEmitTo(t *testing.T) {
	h := testHub(t, 10, nil)

	handle, client := attachClient(t, h)
	require.True(t, waitForClientCount(h, 1))

	h.EmitTo(handle, "connected", map[string]string{"message": "hi"})

	env := readEnvelope(t, client)
	assert.Equal(t, "connected", env.Event)
}

func TestHub_GroupEmit(t *testing.T) {
	h := testHub(t, 10, nil)
	group := domain.WardGroup("W1")

	inHandle, inClient := attachClient(t, h)
	_, outClient := attachClient(t, h)
	require.True(t, waitForClientCount(h, 2))

	h.Join(inHandle, group)
	require.True(t, waitForGroupSize(h, group, 1))

	h.Emit(group, "nurse-alert", map[string]string{"sessionId": "SS1"})

	env := readEnvelope(t, inClient)
	assert.Equal(t, "nurse-alert", env.Event)

	// The connection outside the group must receive nothing.
	outClient.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := outClient.ReadMessage()
	assert.Error(t, err)
}

func TestHub_EmitToAll(t *testing.T) {
	h := testHub(t, 10, nil)

	_, client1 := attachClient(t, h)
	_, client2 := attachClient(t, h)
	require.True(t, waitForClientCount(h, 2))

	h.EmitToAll("emergency-alert", map[string]string{"type": "fire"})

	for _, client := range []*ws.Conn{client1, client2} {
		env := readEnvelope(t, client)
		assert.Equal(t, "emergency-alert", env.Event)
	}
}

func TestHub_EmitEmptyGroupIsNoop(t *testing.T) {
	h := testHub(t, 10, nil)
	// Should not panic or error
	h.Emit(domain.WardGroup("nowhere"), "nurse-alert", nil)
}

func TestHub_SetGroupsReplacesDerivedOnly(t *testing.T) {
	h := testHub(t, 10, nil)

	handle, client := attachClient(t, h)
	require.True(t, waitForClientCount(h, 1))

	oldWard := domain.WardGroup("W1")
	newWard := domain.WardGroup("W2")
	sessionGroup := domain.SessionGroup("SS1")

	h.SetGroups(handle, []domain.Group{oldWard})
	h.Join(handle, sessionGroup)
	require.True(t, waitForGroupSize(h, oldWard, 1))
	require.True(t, waitForGroupSize(h, sessionGroup, 1))

	// Re-registration swaps the ward but keeps the session membership.
	h.SetGroups(handle, []domain.Group{newWard})
	require.True(t, waitForGroupSize(h, oldWard, 0))
	require.True(t, waitForGroupSize(h, newWard, 1))
	require.True(t, waitForGroupSize(h, sessionGroup, 1))

	h.Emit(sessionGroup, "hostess-location", map[string]string{"location": "kitchen"})
	env := readEnvelope(t, client)
	assert.Equal(t, "hostess-location", env.Event)
}

func TestHub_DetachRemovesMemberships(t *testing.T) {
	h := testHub(t, 10, nil)
	group := domain.RoleGroup(domain.RoleAdmin)

	handle, _ := attachClient(t, h)
	require.True(t, waitForClientCount(h, 1))

	h.Join(handle, group)
	require.True(t, waitForGroupSize(h, group, 1))

	h.Detach(handle)
	require.True(t, waitForClientCount(h, 0))
	require.True(t, waitForGroupSize(h, group, 0))
}

func TestHub_MaxConnections(t *testing.T) {
	h := testHub(t, 2, nil)

	attachClient(t, h)
	attachClient(t, h)
	require.True(t, waitForClientCount(h, 2))

	server, _ := newTestConnPair(t)
	err := h.Attach(uuid.New(), server)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max connections")
}

func TestHub_SessionGroupCapacity(t *testing.T) {
	h := NewHub(clockwork.NewRealClock(), 10, 1, 5*time.Second, nil)
	t.Cleanup(func() { h.Stop() })
	group := domain.SessionGroup("SS1")

	first, firstClient := attachClient(t, h)
	second, secondClient := attachClient(t, h)
	require.True(t, waitForClientCount(h, 2))

	h.Join(first, group)
	require.True(t, waitForGroupSize(h, group, 1))

	// The group is full; the second join is refused.
	h.Join(second, group)
	// Re-joining an existing member is not a capacity violation.
	h.Join(first, group)
	require.True(t, waitForGroupSize(h, group, 1))

	h.Emit(group, "serving-progress", map[string]string{"sessionId": "SS1"})
	env := readEnvelope(t, firstClient)
	assert.Equal(t, "serving-progress", env.Event)

	secondClient.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := secondClient.ReadMessage()
	assert.Error(t, err)

	// Only session groups are bounded.
	ward := domain.WardGroup("W1")
	h.Join(first, ward)
	h.Join(second, ward)
	require.True(t, waitForGroupSize(h, ward, 2))
}

func TestHub_DuplicateAttachRejected(t *testing.T) {
	h := testHub(t, 10, nil)

	handle, _ := attachClient(t, h)
	require.True(t, waitForClientCount(h, 1))

	server, _ := newTestConnPair(t)
	err := h.Attach(handle, server)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already attached")
}

func TestHub_MirrorReceivesGroupEmissions(t *testing.T) {
	var mu sync.Mutex
	var mirrored []string
	mirror := func(group domain.Group, event string, frame []byte) {
		mu.Lock()
		defer mu.Unlock()
		mirrored = append(mirrored, string(group)+"/"+event)
	}

	h := testHub(t, 10, mirror)
	group := domain.RoleGroup(domain.RoleAdmin)

	handle, client := attachClient(t, h)
	require.True(t, waitForClientCount(h, 1))
	h.Join(handle, group)
	require.True(t, waitForGroupSize(h, group, 1))

	h.Emit(group, "session-started", map[string]string{"sessionId": "SS1"})
	readEnvelope(t, client)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, mirrored, 1)
	assert.Equal(t, "role:admin/session-started", mirrored[0])
}

func TestHub_StopClosesConnections(t *testing.T) {
	h := NewHub(clockwork.NewRealClock(), 10, 10, 5*time.Second, nil)

	_, client := attachClient(t, h)
	require.True(t, waitForClientCount(h, 1))

	h.Stop()

	client.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := client.ReadMessage(); err != nil {
			break
		}
	}
}
