package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/session"
)

const (
	testInterval  = 30 * time.Minute
	testThreshold = 4 * time.Hour
)

func addSession(t *testing.T, store *session.Store, clock clockwork.Clock, id string) {
	t.Helper()
	now := clock.Now()
	require.NoError(t, store.Create(&domain.Session{
		ID:         id,
		HostessID:  "H001",
		WardID:     "W1",
		Status:     domain.StatusActive,
		StartedAt:  now,
		LastUpdate: now,
		OwnerConn:  uuid.New(),
	}))
}

func TestSweep_RemovesOnlyStaleSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := session.NewStore(clock)
	r := New(store, clock, testInterval, testThreshold)

	addSession(t, store, clock, "old")
	clock.Advance(3 * time.Hour)
	addSession(t, store, clock, "fresh")

	clock.Advance(90 * time.Minute)

	// "old" is 4.5h idle, "fresh" 1.5h.
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get("fresh")
	assert.True(t, ok)
}

func TestSweep_ThresholdIsExclusive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := session.NewStore(clock)
	r := New(store, clock, testInterval, testThreshold)

	addSession(t, store, clock, "SS1")

	clock.Advance(testThreshold)
	assert.Equal(t, 0, r.Sweep())

	clock.Advance(time.Nanosecond)
	assert.Equal(t, 1, r.Sweep())
}

func TestSweep_Idempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := session.NewStore(clock)
	r := New(store, clock, testInterval, testThreshold)

	addSession(t, store, clock, "SS1")
	addSession(t, store, clock, "SS2")
	clock.Advance(testThreshold + time.Minute)

	assert.Equal(t, 2, r.Sweep())
	assert.Equal(t, 0, r.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestSweep_UpdatedSessionSurvives(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := session.NewStore(clock)
	r := New(store, clock, testInterval, testThreshold)

	addSession(t, store, clock, "SS1")

	clock.Advance(3 * time.Hour)
	_, err := store.Update("SS1", func(s *domain.Session) {
		s.LastUpdate = clock.Now()
	})
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 0, r.Sweep())
}

func TestReaper_SweepsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := session.NewStore(clock)
	r := New(store, clock, testInterval, testThreshold)

	addSession(t, store, clock, "SS1")

	r.Start()
	t.Cleanup(r.Stop)

	// Wait for the loop to block on its ticker before advancing time.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(testThreshold + time.Minute)

	// Ticker fires; poll until the loop has swept.
	for range 100 {
		if store.Len() == 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 0, store.Len())
}

func TestReaper_StopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := New(session.NewStore(clock), clock, testInterval, testThreshold)

	r.Start()
	r.Stop()
	r.Stop()
}
