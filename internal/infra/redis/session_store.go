package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mentora-contest-service/internal/contest"
)

// SessionStore is a Redis-aware implementation of contest.Store. Sessions
// themselves stay in-process (the actor model is single-process by design);
// Redis carries liveness markers so operators can see active contests and a
// future pub/sub projector could route cross-instance traffic.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*contest.Actor
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*contest.Actor),
	}
}

func (s *SessionStore) Put(id string, a *contest.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = a
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(id), "1", s.ttl).Err()
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
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "contest:session:" + id
}
