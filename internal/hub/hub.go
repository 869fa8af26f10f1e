package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// envelope is the wire frame for every outbound event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// MirrorFunc receives a copy of every group emission, after fan-out.
// Implementations must not block.
type MirrorFunc func(group domain.Group, event string, frame []byte)

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type attachCmd struct {
	baseHubCmd
	conn         uuid.UUID
	connection   *websocket.Conn
	errorChannel chan error
}

type detachCmd struct {
	baseHubCmd
	conn uuid.UUID
}

type joinCmd struct {
	baseHubCmd
	conn  uuid.UUID
	group domain.Group
}

type leaveCmd struct {
	baseHubCmd
	conn  uuid.UUID
	group domain.Group
}

type setGroupsCmd struct {
	baseHubCmd
	conn   uuid.UUID
	groups []domain.Group
}

type emitCmd struct {
	baseHubCmd
	group domain.Group
	event string
	frame []byte
}

type emitToCmd struct {
	baseHubCmd
	conn  uuid.UUID
	frame []byte
}

type emitAllCmd struct {
	baseHubCmd
	frame []byte
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type groupSizeCmd struct {
	baseHubCmd
	group        domain.Group
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the broadcast fabric: it owns every attached WebSocket connection
// and the named groups used as emission targets. A single actor goroutine
// serializes membership changes and fan-out, so an emission enqueued after a
// join always sees that join.
type Hub struct {
	cmdCh         chan hubCmd
	clock         clockwork.Clock
	writers       map[uuid.UUID]*clientWriter
	groups        map[domain.Group]map[uuid.UUID]struct{}
	derived       map[uuid.UUID]map[domain.Group]struct{}
	joined        map[uuid.UUID]map[domain.Group]struct{}
	mirror        MirrorFunc
	done          chan struct{}
	maxConns      int
	maxPerSession int
	writeTimeout  time.Duration
}

// NewHub creates the fabric actor. maxPerSession caps membership of each
// session group; writeTimeout is the per-message write deadline applied by the
// client writers. mirror may be nil; when set it receives a copy of every
// group emission (used by the Redis relay).
func NewHub(clock clockwork.Clock, maxConns, maxPerSession int, writeTimeout time.Duration, mirror MirrorFunc) *Hub {
	h := &Hub{
		cmdCh:         make(chan hubCmd, 256),
		clock:         clock,
		writers:       make(map[uuid.UUID]*clientWriter),
		groups:        make(map[domain.Group]map[uuid.UUID]struct{}),
		derived:       make(map[uuid.UUID]map[domain.Group]struct{}),
		joined:        make(map[uuid.UUID]map[domain.Group]struct{}),
		mirror:        mirror,
		done:          make(chan struct{}),
		maxConns:      maxConns,
		maxPerSession: maxPerSession,
		writeTimeout:  writeTimeout,
	}
	go h.run()
	return h
}

// --- Public API ---

// Attach hands a freshly upgraded connection to the hub. Returns an error if
// the hub is at capacity; the connection is closed in that case.
func (h *Hub) Attach(conn uuid.UUID, connection *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- attachCmd{conn: conn, connection: connection, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("attach command timed out after %v", commandTimeout)
	}
}

// Detach removes a connection from every group and stops its writer.
func (h *Hub) Detach(conn uuid.UUID) {
	h.cmdCh <- detachCmd{conn: conn}
}

func (h *Hub) Join(conn uuid.UUID, group domain.Group) {
	h.cmdCh <- joinCmd{conn: conn, group: group}
}

func (h *Hub) Leave(conn uuid.UUID, group domain.Group) {
	h.cmdCh <- leaveCmd{conn: conn, group: group}
}

// SetGroups atomically replaces the connection's derived memberships.
// Groups joined via Join (session groups) are untouched.
func (h *Hub) SetGroups(conn uuid.UUID, groups []domain.Group) {
	h.cmdCh <- setGroupsCmd{conn: conn, groups: groups}
}

// Emit delivers an event to every member of the group. Fire-and-forget:
// an empty or unknown group is a no-op.
func (h *Hub) Emit(group domain.Group, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	h.cmdCh <- emitCmd{group: group, event: event, frame: frame}
}

// EmitTo delivers an event to a single connection.
func (h *Hub) EmitTo(conn uuid.UUID, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	h.cmdCh <- emitToCmd{conn: conn, frame: frame}
}

// EmitToAll delivers an event to every attached connection.
func (h *Hub) EmitToAll(event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	h.cmdCh <- emitAllCmd{frame: frame}
}

// ClientCount returns the number of attached connections, or -1 on timeout.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}
	return h.awaitCount(replyCh)
}

// GroupSize returns the number of members in a group, or -1 on timeout.
func (h *Hub) GroupSize(group domain.Group) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- groupSizeCmd{group: group, replyChannel: replyCh}
	return h.awaitCount(replyCh)
}

func (h *Hub) awaitCount(replyCh chan int) int {
	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("Hub count query timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all connections. Blocks until the actor
// goroutine has exited or the stop timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timeout := h.clock.NewTimer(stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Hub stop timeout exceeded, forcing exit", "timeout", stopTimeout)
	}
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	frame, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		slog.Error("Failed to marshal event frame", "event", event, "error", err)
		return nil, err
	}
	return frame, nil
}

// --- Actor loop ---

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			metrics.HubPanicsTotal.Inc()
			h.closeAll("hub panic")
		}
	}()
	defer close(h.done)

	depthTicker := h.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			metrics.HubCommandChannelDepth.Set(float64(len(h.cmdCh)))
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case attachCmd:
				h.handleAttach(c)
			case detachCmd:
				h.handleDetach(c.conn)
			case joinCmd:
				h.addMembership(c.conn, c.group, h.joined)
			case leaveCmd:
				h.removeMembership(c.conn, c.group, h.joined)
			case setGroupsCmd:
				h.handleSetGroups(c)
			case emitCmd:
				h.handleEmit(c)
			case emitToCmd:
				h.handleEmitTo(c)
			case emitAllCmd:
				h.handleEmitAll(c)
			case clientCountCmd:
				c.replyChannel <- len(h.writers)
			case groupSizeCmd:
				c.replyChannel <- len(h.groups[c.group])
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (h *Hub) handleAttach(c attachCmd) {
	if len(h.writers) >= h.maxConns {
		slog.Warn("Rejecting connection: hub at capacity", "max_connections", h.maxConns)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max connections (%d) reached", h.maxConns)
		return
	}

	if _, exists := h.writers[c.conn]; exists {
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("connection %s already attached", c.conn)
		return
	}

	h.writers[c.conn] = newClientWriter(c.connection, h.clock, h.writeTimeout)
	metrics.HubConnectedClients.Set(float64(len(h.writers)))
	slog.Debug("Connection attached", "conn_id", c.conn.String(), "total", len(h.writers))
	c.errorChannel <- nil
}

func (h *Hub) handleDetach(conn uuid.UUID) {
	cw, exists := h.writers[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.writers, conn)
	h.dropAllMemberships(conn)

	metrics.HubConnectedClients.Set(float64(len(h.writers)))
	metrics.HubActiveGroups.Set(float64(len(h.groups)))
	slog.Debug("Connection detached", "conn_id", conn.String(), "total", len(h.writers))
}

func (h *Hub) handleSetGroups(c setGroupsCmd) {
	if _, exists := h.writers[c.conn]; !exists {
		return
	}

	// Leave stale derived groups first, then apply the new set.
	for group := range h.derived[c.conn] {
		h.removeFromIndex(c.conn, group)
	}
	delete(h.derived, c.conn)

	for _, group := range c.groups {
		h.addMembership(c.conn, group, h.derived)
	}
	metrics.HubActiveGroups.Set(float64(len(h.groups)))
}

func (h *Hub) addMembership(conn uuid.UUID, group domain.Group, owner map[uuid.UUID]map[domain.Group]struct{}) {
	if _, exists := h.writers[conn]; !exists {
		return
	}
	members, exists := h.groups[group]
	if !exists {
		members = make(map[uuid.UUID]struct{})
		h.groups[group] = members
	}

	if _, member := members[conn]; !member && group.IsSession() && len(members) >= h.maxPerSession {
		slog.Warn("Refusing session group join: group at capacity",
			"group", string(group), "max_per_session", h.maxPerSession)
		metrics.HubSessionJoinsRefused.Inc()
		return
	}
	members[conn] = struct{}{}

	set, exists := owner[conn]
	if !exists {
		set = make(map[domain.Group]struct{})
		owner[conn] = set
	}
	set[group] = struct{}{}
	metrics.HubActiveGroups.Set(float64(len(h.groups)))
}

func (h *Hub) removeMembership(conn uuid.UUID, group domain.Group, owner map[uuid.UUID]map[domain.Group]struct{}) {
	if set, exists := owner[conn]; exists {
		delete(set, group)
		if len(set) == 0 {
			delete(owner, conn)
		}
	}
	h.removeFromIndex(conn, group)
	metrics.HubActiveGroups.Set(float64(len(h.groups)))
}

func (h *Hub) removeFromIndex(conn uuid.UUID, group domain.Group) {
	members, exists := h.groups[group]
	if !exists {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

func (h *Hub) dropAllMemberships(conn uuid.UUID) {
	for group := range h.derived[conn] {
		h.removeFromIndex(conn, group)
	}
	delete(h.derived, conn)
	for group := range h.joined[conn] {
		h.removeFromIndex(conn, group)
	}
	delete(h.joined, conn)
}

func (h *Hub) handleEmit(c emitCmd) {
	members := h.groups[c.group]
	if len(members) > 0 {
		var slow []uuid.UUID
		for conn := range members {
			writer, exists := h.writers[conn]
			if !exists {
				continue
			}
			select {
			case writer.sendChannel <- c.frame:
			default:
				slow = append(slow, conn)
			}
		}
		h.evictSlow(slow)
		metrics.HubEmitsTotal.WithLabelValues("group").Inc()
	}

	if h.mirror != nil {
		h.mirror(c.group, c.event, c.frame)
	}
}

func (h *Hub) handleEmitTo(c emitToCmd) {
	writer, exists := h.writers[c.conn]
	if !exists {
		return
	}
	select {
	case writer.sendChannel <- c.frame:
		metrics.HubEmitsTotal.WithLabelValues("direct").Inc()
	default:
		h.evictSlow([]uuid.UUID{c.conn})
	}
}

func (h *Hub) handleEmitAll(c emitAllCmd) {
	var slow []uuid.UUID
	for conn, writer := range h.writers {
		select {
		case writer.sendChannel <- c.frame:
		default:
			slow = append(slow, conn)
		}
	}
	h.evictSlow(slow)
	metrics.HubEmitsTotal.WithLabelValues("all").Inc()
}

func (h *Hub) evictSlow(conns []uuid.UUID) {
	for _, conn := range conns {
		slog.Warn("Disconnecting slow client", "conn_id", conn.String())
		metrics.HubSlowClientsEvicted.Inc()
		h.handleDetach(conn)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "connections", len(h.writers), "groups", len(h.groups))
	h.closeAll("Server shutting down")
	slog.Info("Hub shutdown complete")
}

func (h *Hub) closeAll(reason string) {
	for conn, cw := range h.writers {
		cw.stopGraceful(reason)
		delete(h.writers, conn)
	}
	h.groups = make(map[domain.Group]map[uuid.UUID]struct{})
	h.derived = make(map[uuid.UUID]map[domain.Group]struct{})
	h.joined = make(map[uuid.UUID]map[domain.Group]struct{})
	metrics.HubConnectedClients.Set(0)
	metrics.HubActiveGroups.Set(0)
}
