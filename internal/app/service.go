package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"mockprep-service/internal/domain"
	"mockprep-service/internal/evaluator"
	"mockprep-service/internal/speech"
)

// InterviewRepository abstracts how interview sessions are stored (in-memory,
// Redis-marked, etc).
type InterviewRepository interface {
	Put(session *InterviewSession)
	Get(id string) (*InterviewSession, bool)
	Delete(id string)
	All() []*InterviewSession
}

// TestRepository abstracts how test sessions are stored.
type TestRepository interface {
	Put(session *TestSession)
	Get(id string) (*TestSession, bool)
	Delete(id string)
	All() []*TestSession
}

// TestGenerator produces test question sets. The cache layers in infra
// implement it around the evaluator client.
type TestGenerator interface {
	GenerateTest(ctx context.Context, cfg domain.TestConfig) ([]domain.Question, error)
}

// ResultArchive persists completed test results per user.
type ResultArchive interface {
	SaveResult(ctx context.Context, email string, cfg domain.TestConfig, result domain.TestResult) error
	ListResults(ctx context.Context, email string) ([]domain.ArchivedResult, error)
}

// IdentityStore persists the token/user/email triplet of a logged-in user.
type IdentityStore interface {
	Save(ctx context.Context, identity domain.Identity) error
	Get(ctx context.Context, email string) (domain.Identity, bool, error)
	Clear(ctx context.Context, email string) error
}

// Service contains the session use cases.
type Service struct {
	interviews InterviewRepository
	tests      TestRepository
	client     evaluator.Client
	generator  TestGenerator
	archive    ResultArchive

	speaker       speech.Speaker
	recognizer    speech.Recognizer
	fallbackDelay time.Duration
	timers        TimerFactory
	now           func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithServiceSpeech wires playback/capture devices into interview sessions.
func WithServiceSpeech(speaker speech.Speaker, recognizer speech.Recognizer) ServiceOption {
	return func(s *Service) {
		s.speaker = speaker
		s.recognizer = recognizer
	}
}

// WithArchive enables result archiving.
func WithArchive(archive ResultArchive) ServiceOption {
	return func(s *Service) {
		s.archive = archive
	}
}

// WithServiceFallbackDelay sets the interview asking→listening fallback delay.
func WithServiceFallbackDelay(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.fallbackDelay = d
	}
}

// WithTimers is test-only: overrides countdown scheduling.
func WithTimers(timers TimerFactory) ServiceOption {
	return func(s *Service) {
		s.timers = timers
	}
}

// WithServiceClock is test-only for deterministic timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(interviews InterviewRepository, tests TestRepository, client evaluator.Client, generator TestGenerator, opts ...ServiceOption) *Service {
	s := &Service{
		interviews:    interviews,
		tests:         tests,
		client:        client,
		generator:     generator,
		fallbackDelay: 3 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInterview registers a fresh interview session in setup state.
func (s *Service) CreateInterview() *InterviewSession {
	session := NewInterviewSession(
		uuid.NewString(),
		s.client,
		WithSpeech(s.speaker, s.recognizer),
		WithFallbackDelay(s.fallbackDelay),
		WithClock(s.now),
	)
	s.interviews.Put(session)
	return session
}

// GetInterview looks up a live interview session.
func (s *Service) GetInterview(id string) (*InterviewSession, error) {
	session, ok := s.interviews.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// CloseInterview tears an interview session down and drops it.
func (s *Service) CloseInterview(id string) {
	if session, ok := s.interviews.Get(id); ok {
		session.Close()
		s.interviews.Delete(id)
	}
}

// CreateTest generates a question set for cfg and starts a timed session.
// A malformed or empty generation response fails the call; no timer starts
// and no session is registered.
func (s *Service) CreateTest(ctx context.Context, ownerEmail string, cfg domain.TestConfig) (*TestSession, error) {
	questions, err := s.generator.GenerateTest(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	session := NewTestSession(uuid.NewString(), s.client, cfg, questions, s.now, s.timers)
	if s.archive != nil && ownerEmail != "" {
		session.SetResultObserver(func(result domain.TestResult) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.archive.SaveResult(ctx, ownerEmail, cfg, result); err != nil {
				log.Printf("archive result for %s: %v", ownerEmail, err)
			}
		})
	}
	s.tests.Put(session)
	return session, nil
}

// GetTest looks up a live test session.
func (s *Service) GetTest(id string) (*TestSession, error) {
	session, ok := s.tests.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// CloseTest tears a test session down and drops it.
func (s *Service) CloseTest(id string) {
	if session, ok := s.tests.Get(id); ok {
		session.Close()
		s.tests.Delete(id)
	}
}

// ListResults returns the archived results for a user.
func (s *Service) ListResults(ctx context.Context, email string) ([]domain.ArchivedResult, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("result archive not configured")
	}
	return s.archive.ListResults(ctx, email)
}

// ReapIdle closes and removes sessions idle longer than maxIdle, returning
// how many were dropped.
func (s *Service) ReapIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	reaped := 0
	for _, session := range s.interviews.All() {
		if session.LastActive().Before(cutoff) {
			s.CloseInterview(session.ID())
			reaped++
		}
	}
	for _, session := range s.tests.All() {
		if session.LastActive().Before(cutoff) {
			s.CloseTest(session.ID())
			reaped++
		}
	}
	return reaped
}

// RunReaper loops ReapIdle every interval until ctx is cancelled.
func (s *Service) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ReapIdle(maxIdle); n > 0 {
				log.Printf("reaped %d idle sessions", n)
			}
		}
	}
}
