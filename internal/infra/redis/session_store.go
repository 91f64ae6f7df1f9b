package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mockprep-service/internal/app"
)

// Session state holds live callbacks and timers, so it cannot leave the
// process; Redis marks session liveness so operators can inspect and expire
// sessions across restarts. The local map remains the source of truth.

// InterviewStore is a Redis-aware implementation of app.InterviewRepository.
type InterviewStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.InterviewSession
}

func NewInterviewStore(client *redis.Client, ttl time.Duration) *InterviewStore {
	return &InterviewStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.InterviewSession),
	}
}

func (s *InterviewStore) Put(session *app.InterviewSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), interviewKey(session.ID()), "1", s.ttl).Err()
}

func (s *InterviewStore) Get(id string) (*app.InterviewSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *InterviewStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	_ = s.client.Del(context.Background(), interviewKey(id)).Err()
}

func (s *InterviewStore) All() []*app.InterviewSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.InterviewSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// TestStore is a Redis-aware implementation of app.TestRepository.
type TestStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.TestSession
}

func NewTestStore(client *redis.Client, ttl time.Duration) *TestStore {
	return &TestStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.TestSession),
	}
}

func (s *TestStore) Put(session *app.TestSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	_ = s.client.Set(context.Background(), testKey(session.ID()), "1", s.ttl).Err()
}

func (s *TestStore) Get(id string) (*app.TestSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *TestStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	_ = s.client.Del(context.Background(), testKey(id)).Err()
}

func (s *TestStore) All() []*app.TestSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.TestSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

func interviewKey(id string) string {
	return "interview:session:" + id
}

func testKey(id string) string {
	return "test:session:" + id
}
