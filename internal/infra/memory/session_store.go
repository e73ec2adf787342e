package memory

import (
	"sync"

	"mentora-contest-service/internal/contest"
)

// SessionStore is the in-process implementation of contest.Store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*contest.Actor
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*contest.Actor),
	}
}

func (s *SessionStore) Put(id string, a *contest.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = a
}

func (s *SessionStore) Get(id string) (*contest.Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.sessions[id]
	return a, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
