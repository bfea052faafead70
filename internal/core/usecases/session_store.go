package usecases

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

type sessionEntry struct {
	mu       sync.Mutex
	session  *EditorSession
	lastUsed time.Time
}

// SessionStore owns the live editing sessions of this process. Calls on one
// session are serialized; different sessions proceed in parallel.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
}

// NewSessionStore creates a store whose idle sessions expire after ttl.
// A zero ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
	}
}

// Create starts a new empty session and returns its state.
func (s *SessionStore) Create() domain.SessionState {
	sess := NewEditorSession(uuid.NewString())

	s.mu.Lock()
	s.sessions[sess.ID()] = &sessionEntry{session: sess, lastUsed: time.Now()}
	s.mu.Unlock()

	return sess.State()
}

// Do runs fn with exclusive access to the session.
func (s *SessionStore) Do(id string, fn func(sess *EditorSession) error) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = time.Now()
	return fn(e.session)
}

// Delete ends a session.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle since before now-ttl and returns how many
// were removed. It never waits on a session that is in use.
func (s *SessionStore) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.RLock()
	entries := make(map[string]*sessionEntry, len(s.sessions))
	for id, e := range s.sessions {
		entries[id] = e
	}
	s.mu.RUnlock()

	var idle []string
	for id, e := range entries {
		if !e.touchedSince(cutoff) {
			idle = append(idle, id)
		}
	}
	if len(idle) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range idle {
		// Recheck under the write lock; it may have been used since.
		e, ok := s.sessions[id]
		if !ok || e != entries[id] || e.touchedSince(cutoff) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// touchedSince reports whether the session was used at or after t. A session
// held by Do counts as used.
func (e *sessionEntry) touchedSince(t time.Time) bool {
	if !e.mu.TryLock() {
		return true
	}
	defer e.mu.Unlock()
	return !e.lastUsed.Before(t)
}
