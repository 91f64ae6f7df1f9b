package memory

import (
	"sync"

	"mockprep-service/internal/app"
)

// InterviewStore is an in-memory implementation of app.InterviewRepository.
type InterviewStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.InterviewSession
}

func NewInterviewStore() *InterviewStore {
	return &InterviewStore{sessions: make(map[string]*app.InterviewSession)}
}

func (s *InterviewStore) Put(session *app.InterviewSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
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

// TestStore is an in-memory implementation of app.TestRepository.
type TestStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.TestSession
}

func NewTestStore() *TestStore {
	return &TestStore{sessions: make(map[string]*app.TestSession)}
}

func (s *TestStore) Put(session *app.TestSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
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
