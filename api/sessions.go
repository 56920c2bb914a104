package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vainnor/fatigue-report/models"
)

// SessionStore keeps form sessions in process memory. A session is only
// touched by one request at a time.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Acquire returns the session for id, creating a fresh one when id is
// unknown, locked until release is called.
func (s *SessionStore) Acquire(id string) (sess *models.Session, release func(), created bool) {
	now := s.now()

	s.mu.Lock()
	entry, ok := s.sessions[id]
	if !ok || id == "" {
		id = uuid.NewString()
		entry = &sessionEntry{session: models.NewSession(id, now)}
		s.sessions[id] = entry
		created = true
	}
	s.mu.Unlock()

	entry.mu.Lock()
	entry.session.LastSeen = now
	return entry.session, entry.mu.Unlock, created
}

// Lookup returns an existing session, locked until release is called. It
// never creates one and does not refresh LastSeen.
func (s *SessionStore) Lookup(id string) (sess *models.Session, release func(), ok bool) {
	if id == "" {
		return nil, nil, false
	}
	s.mu.Lock()
	entry, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil, false
	}
	entry.mu.Lock()
	return entry.session, entry.mu.Unlock, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions in use by a request are skipped.
func (s *SessionStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		expired := entry.session.LastSeen.Before(cutoff)
		entry.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
