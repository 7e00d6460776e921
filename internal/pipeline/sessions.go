package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
)

// DefaultSessionTTL is how long an untouched import session is kept.
const DefaultSessionTTL = 2 * time.Hour

type sessionEntry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed time.Time
}

// SessionStore keeps import sessions in memory until they are committed,
// discarded or left idle past the TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      Clock
}

// NewSessionStore creates an empty store. A non-positive ttl uses DefaultSessionTTL.
func NewSessionStore(ttl time.Duration, now Clock) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      now,
	}
}

// Add registers a new session.
func (s *SessionStore) Add(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = &sessionEntry{session: session, lastUsed: s.now()}
}

func (s *SessionStore) entry(id string, owner domain.Identity) (*sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	// Another user's session is reported as missing.
	if !ok || e.session.Owner.UserID != owner.UserID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

// With runs fn with exclusive access to the session id owned by owner.
func (s *SessionStore) With(id string, owner domain.Identity, fn func(*Session) error) error {
	e, err := s.entry(id, owner)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastUsed = s.now()
	return fn(e.session)
}

// Delete removes a session. Deleting a session that is committing fails.
func (s *SessionStore) Delete(id string, owner domain.Identity) error {
	e, err := s.entry(id, owner)
	if err != nil {
		return err
	}

	e.mu.Lock()
	committing := e.session.committing
	e.mu.Unlock()
	if committing {
		return ErrCommitInFlight
	}

	s.remove(id)
	return nil
}

func (s *SessionStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many were
// removed. Sessions with a commit in flight are kept.
func (s *SessionStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if !e.mu.TryLock() {
			continue
		}
		expired := e.lastUsed.Before(cutoff) && !e.session.committing
		e.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep on every tick until ctx is done.
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Info().Int("removed", n).Msg("Expired idle import sessions")
			}
		}
	}
}
