package session

import (
	"sync"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"

	"github.com/google/uuid"
)

type entry struct {
	state    *State
	lastSeen time.Time
}

// Store keeps session states in memory and evicts idle ones.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*entry
	ttl       time.Duration
	done      chan struct{}
	closeOnce sync.Once
	logger    *errors.Logger
	now       func() time.Time
}

// NewStore creates a store and starts its cleanup goroutine.
func NewStore(cfg config.SessionConfig, logger *errors.Logger) *Store {
	s := &Store{
		sessions: make(map[string]*entry),
		ttl:      cfg.TTL,
		done:     make(chan struct{}),
		logger:   logger,
		now:      time.Now,
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go s.cleanupRoutine(interval)
	return s
}

// Get returns the state for id and refreshes its idle timer.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.state, true
}

// GetOrCreate returns the state for id, creating a new session under a
// fresh ID when id is empty or unknown. created reports the latter.
func (s *Store) GetOrCreate(id string) (string, *State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok && id != "" {
		e.lastSeen = s.now()
		return id, e.state, false
	}

	id = uuid.NewString()
	st := NewState()
	s.sessions[id] = &entry{state: st, lastSeen: s.now()}
	return id, st, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

// cleanup drops sessions idle for longer than the TTL. Sessions with a
// submission in flight are kept.
func (s *Store) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl && !e.state.Loading() {
			delete(s.sessions, id)
			evicted++
		}
	}

	if s.logger != nil {
		s.logger.Debug("Session cleanup completed",
			"evicted", evicted,
			"remaining_sessions", len(s.sessions))
	}
	return evicted
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
