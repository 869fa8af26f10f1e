// Package session holds the in-memory state of every delivery round in
// progress. The store is the only shared mutable resource besides the
// registry; all mutation is serialized through Update.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/metrics"
)

// Store is a mutex-guarded map of live sessions. Get and Update hand out
// copies; the only *domain.Session that escapes is the one passed to the
// Update mutator, and that runs under the write lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	clock    clockwork.Clock
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
		clock:    clock,
	}
}

// Create adds a new session. Fails with ErrDuplicateSession if the id is
// already tracked.
func (s *Store) Create(session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return domain.ErrDuplicateSession
	}

	cloned := *session
	s.sessions[session.ID] = &cloned
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return nil
}

// Get returns a copy of the session.
func (s *Store) Get(id string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return domain.Session{}, false
	}
	return *session, true
}

// Update applies mutate to the session under the write lock and returns the
// resulting state. This is the atomic read-modify-write the router relies on
// to serialize all mutations of a single session.
func (s *Store) Update(id string, mutate func(*domain.Session)) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[id]
	if !exists {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	mutate(session)
	return *session, nil
}

// Remove deletes a session, reporting whether it was present.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return false
	}
	delete(s.sessions, id)
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return true
}

// ScanStale returns the ids of sessions whose idle time exceeds threshold.
// The scan runs under the read lock only; the reaper deletes afterwards so
// the lock is never held across the whole sweep.
func (s *Store) ScanStale(threshold time.Duration) []string {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []string
	for id, session := range s.sessions {
		if now.Sub(session.IdleSince()) > threshold {
			stale = append(stale, id)
		}
	}
	return stale
}

// OwnedBy returns the ids of sessions owned by the given connection handle.
func (s *Store) OwnedBy(conn uuid.UUID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []string
	for id, session := range s.sessions {
		if session.OwnerConn == conn {
			owned = append(owned, id)
		}
	}
	return owned
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
