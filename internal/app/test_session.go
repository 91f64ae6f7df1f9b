package app

import (
	"context"
	"sync"
	"time"

	"mockprep-service/internal/domain"
	"mockprep-service/internal/evaluator"
)

// TimerFactory schedules fn to run once after d and returns a stop function.
// Stop reports whether the callback was cancelled before firing. Injected so
// tests can fire the auto-submit deterministically.
type TimerFactory func(d time.Duration, fn func()) (stop func() bool)

func defaultTimerFactory(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// TestSnapshot is a consistent view of a test session for display. Questions
// are stripped of their correct answers.
type TestSnapshot struct {
	ID        string                     `json:"id"`
	Config    domain.TestConfig          `json:"config"`
	Questions []domain.Question          `json:"questions"`
	Answers   map[string]string          `json:"answers"`
	Index     int                        `json:"index"`
	Remaining int                        `json:"remainingSeconds"`
	Submitted bool                       `json:"submitted"`
	Result    *domain.TestResult         `json:"result,omitempty"`
	Log       []domain.ConversationEntry `json:"log,omitempty"`
}

// TestSession drives one timed mock test: a fixed question set answered with
// free navigation, submitted manually or by the countdown expiring. The
// question list is immutable in identity and order once set; submission is a
// one-way transition after which answers can no longer change.
type TestSession struct {
	id     string
	client evaluator.Client
	now    func() time.Time

	mu         sync.Mutex
	cfg        domain.TestConfig
	questions  []domain.Question
	answers    map[string]string
	index      int
	deadline   time.Time
	stopTimer  func() bool
	submitting bool
	result     *domain.TestResult
	log        []domain.ConversationEntry
	lastActive time.Time

	// onResult, when set, observes every successful submission (manual or
	// timer-driven). Used for archiving.
	onResult func(domain.TestResult)
}

// NewTestSession builds a session around an already generated question list
// and arms the countdown for cfg.TimeLimit minutes.
func NewTestSession(id string, client evaluator.Client, cfg domain.TestConfig, questions []domain.Question, now func() time.Time, timers TimerFactory) *TestSession {
	if now == nil {
		now = time.Now
	}
	if timers == nil {
		timers = defaultTimerFactory
	}

	s := &TestSession{
		id:        id,
		client:    client,
		now:       now,
		cfg:       cfg,
		questions: questions,
		answers:   make(map[string]string, len(questions)),
	}
	for _, q := range questions {
		s.answers[q.ID] = ""
	}
	s.lastActive = now()

	limit := time.Duration(cfg.TimeLimit) * time.Minute
	s.deadline = now().Add(limit)
	s.stopTimer = timers(limit, s.autoSubmit)
	return s
}

// ID returns the session identifier.
func (s *TestSession) ID() string { return s.id }

// SetResultObserver registers a callback invoked after every successful
// submission, outside the session lock.
func (s *TestSession) SetResultObserver(fn func(domain.TestResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

// SelectAnswer overwrites the stored answer for questionID. It has no effect
// on the timer or navigation and is rejected once a result exists.
func (s *TestSession) SelectAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return domain.ErrAlreadySubmitted
	}
	if _, ok := s.answers[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.answers[questionID] = value
	s.touchLocked()
	return nil
}

// Navigate moves the current-question pointer by delta, clamped to the valid
// index range. Answers and the timer are unaffected.
func (s *TestSession) Navigate(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index += delta
	if s.index < 0 {
		s.index = 0
	}
	if last := len(s.questions) - 1; s.index > last {
		s.index = last
	}
	s.touchLocked()
	return s.index
}

// Remaining reports whole seconds until the deadline, never negative.
func (s *TestSession) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

func (s *TestSession) remainingLocked() int {
	left := int(s.deadline.Sub(s.now()) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// Submit sends the full answer payload to the evaluation service. Re-entry
// while a submission is in flight is suppressed without a second network
// call; after a result exists further submissions are rejected. On failure
// the session becomes submittable again, but the timer is not restarted.
func (s *TestSession) Submit(ctx context.Context) (domain.TestResult, error) {
	s.mu.Lock()
	if s.result != nil {
		s.mu.Unlock()
		return domain.TestResult{}, domain.ErrAlreadySubmitted
	}
	if s.submitting {
		s.mu.Unlock()
		return domain.TestResult{}, domain.ErrSubmitInProgress
	}
	s.submitting = true
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.touchLocked()
	cfg := s.cfg
	questions := make([]domain.Question, len(s.questions))
	copy(questions, s.questions)
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	s.mu.Unlock()

	result, err := s.client.SubmitAnswers(ctx, cfg, questions, answers)

	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.mu.Unlock()
		return domain.TestResult{}, err
	}
	s.result = &result
	observer := s.onResult
	s.mu.Unlock()

	if observer != nil {
		observer(result)
	}
	return result, nil
}

// autoSubmit fires when the countdown reaches zero, exactly as if the user
// had submitted manually.
func (s *TestSession) autoSubmit() {
	_, _ = s.Submit(context.Background())
}

// AppendMessage adds an entry to the append-only conversation log.
func (s *TestSession) AppendMessage(sender, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, domain.ConversationEntry{
		Sender: sender,
		Text:   text,
		At:     s.now(),
	})
	s.touchLocked()
}

// Result returns the stored result, if submission has completed.
func (s *TestSession) Result() (domain.TestResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.TestResult{}, false
	}
	return *s.result, true
}

// Config returns the session's fixed configuration.
func (s *TestSession) Config() domain.TestConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Snapshot returns a consistent view with correct answers stripped.
func (s *TestSession) Snapshot() TestSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := TestSnapshot{
		ID:        s.id,
		Config:    s.cfg,
		Questions: make([]domain.Question, 0, len(s.questions)),
		Answers:   make(map[string]string, len(s.answers)),
		Index:     s.index,
		Remaining: s.remainingLocked(),
		Submitted: s.result != nil,
		Result:    s.result,
	}
	for _, q := range s.questions {
		q.CorrectAnswer = ""
		snap.Questions = append(snap.Questions, q)
	}
	for k, v := range s.answers {
		snap.Answers[k] = v
	}
	snap.Log = append(snap.Log, s.log...)
	return snap
}

// LastActive reports when the session was last touched.
func (s *TestSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close tears the session down, cancelling the pending auto-submit.
func (s *TestSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
}

func (s *TestSession) touchLocked() {
	s.lastActive = s.now()
}
