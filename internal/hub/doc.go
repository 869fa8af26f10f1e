// Package hub implements the broadcast fabric: a single-goroutine actor that
// owns every attached WebSocket connection, the named broadcast groups, and
// the per-connection writer goroutines.
package hub
