// Package relay mirrors administrator-facing emissions onto a Redis pub/sub
// channel. It is the scale-out seam: a future second coordinator instance, or
// an out-of-process dashboard, can follow the live event stream without
// holding a WebSocket connection.
package relay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/metrics"
)

// Channel is the Redis pub/sub channel the relay publishes to.
const Channel = "servicesync:events"

const publishBufferSize = 256

// Relay forwards mirrored hub frames to Redis. Mirror never blocks: frames
// are handed to a buffered channel and dropped with a counter bump when the
// publisher cannot keep up.
type Relay struct {
	client   *redis.Client
	mirrored domain.Group
	frames   chan []byte

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a relay following emissions to the given group (typically the
// administrator role group, which sees every state change).
func New(client *redis.Client, mirrored domain.Group) *Relay {
	r := &Relay{
		client:   client,
		mirrored: mirrored,
		frames:   make(chan []byte, publishBufferSize),
		stopCh:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.publishLoop()
	return r
}

// Mirror is the hub callback. It runs on the hub actor goroutine and must
// not block.
func (r *Relay) Mirror(group domain.Group, event string, frame []byte) {
	if group != r.mirrored {
		return
	}
	select {
	case r.frames <- frame:
	default:
		metrics.RelayPublishErrors.Inc()
	}
}

func (r *Relay) publishLoop() {
	defer r.wg.Done()

	for {
		select {
		case frame := <-r.frames:
			if err := r.client.Publish(context.Background(), Channel, frame).Err(); err != nil {
				slog.Warn("Relay publish failed", "error", err)
				metrics.RelayPublishErrors.Inc()
				continue
			}
			metrics.RelayPublishedTotal.Inc()
		case <-r.stopCh:
			return
		}
	}
}

// Stop halts the publisher. Buffered frames not yet published are dropped.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}
