package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub Metrics
var (
	// HubConnectedClients tracks current number of attached connections
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Current number of attached WebSocket connections",
		},
	)

	// HubActiveGroups tracks number of non-empty broadcast groups
	HubActiveGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_active_groups",
			Help: "Number of non-empty broadcast groups",
		},
	)

	// HubEmitsTotal tracks emissions by scope (group/direct/all)
	HubEmitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_emits_total",
			Help: "Total event emissions by scope (group/direct/all)",
		},
		[]string{"scope"},
	)

	// HubSessionJoinsRefused tracks session group joins refused at capacity
	HubSessionJoinsRefused = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_session_joins_refused_total",
			Help: "Total session group joins refused because the group was at capacity",
		},
	)

	// HubSlowClientsEvicted tracks slow clients dropped due to full buffers
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total slow WebSocket clients evicted due to buffer full",
		},
	)

	// HubPanicsTotal tracks hub panic recoveries
	HubPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_panics_total",
			Help: "Total hub panic recoveries",
		},
	)

	// HubCommandChannelDepth tracks current command channel depth
	HubCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_command_channel_depth",
			Help: "Current hub command channel depth",
		},
	)
)

// Router Metrics
var (
	// RouterEventsTotal tracks inbound events by type and result
	RouterEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_events_total",
			Help: "Total inbound events by type and result (ok/rejected/malformed)",
		},
		[]string{"event", "result"},
	)

	// RouterEventDuration tracks event handling latency
	RouterEventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_event_duration_seconds",
			Help:    "Event handling duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05},
		},
		[]string{"event"},
	)

	// SessionsActive tracks sessions currently held in the store
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of delivery sessions currently tracked in memory",
		},
	)
)

// Reaper Metrics
var (
	// ReaperSweepsTotal tracks completed reaper sweeps
	ReaperSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reaper_sweeps_total",
			Help: "Total stale-session sweeps completed",
		},
	)

	// ReaperSessionsReaped tracks sessions removed by the reaper
	ReaperSessionsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reaper_sessions_reaped_total",
			Help: "Total stale sessions removed by the reaper",
		},
	)

	// ReaperSweepDuration tracks sweep latency
	ReaperSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reaper_sweep_duration_seconds",
			Help:    "Stale-session sweep duration in seconds",
			Buckets: []float64{.0001, .001, .01, .1, 1},
		},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsTotal tracks connection attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connection attempts by result (success/error/rejected)",
		},
		[]string{"result"},
	)

	// WebSocketMessageSendDuration tracks WebSocket message send duration
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// WebSocketPingFailures tracks WebSocket ping failures
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures (client not responding)",
		},
	)
)

// Archiver Metrics
var (
	// ArchiveWritesTotal tracks durable writes by kind and status
	ArchiveWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_writes_total",
			Help: "Total fire-and-forget durable writes by kind and status",
		},
		[]string{"kind", "status"},
	)

	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database query errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database query errors by query name",
		},
		[]string{"query"},
	)
)

// Relay Metrics
var (
	// RelayPublishedTotal tracks events mirrored to the Redis relay channel
	RelayPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_published_total",
			Help: "Total events mirrored to the Redis relay channel",
		},
	)

	// RelayPublishErrors tracks relay publish failures
	RelayPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_publish_errors_total",
			Help: "Total Redis relay publish failures",
		},
	)
)
