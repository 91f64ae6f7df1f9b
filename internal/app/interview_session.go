package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"mockprep-service/internal/domain"
	"mockprep-service/internal/evaluator"
	"mockprep-service/internal/speech"
)

// InterviewState is a phase of the interview loop.
type InterviewState string

const (
	StateSetup     InterviewState = "setup"
	StateWaiting   InterviewState = "waiting"
	StateAsking    InterviewState = "asking"
	StateListening InterviewState = "listening"
	StateFeedback  InterviewState = "feedback"
	StateComplete  InterviewState = "complete"
)

// InterviewEvent notifies the transport of asynchronous session changes:
// playback-driven state transitions and live transcripts.
type InterviewEvent struct {
	Kind       string         `json:"kind"` // "state" or "transcript"
	State      InterviewState `json:"state,omitempty"`
	Transcript string         `json:"transcript,omitempty"`
}

// InterviewSnapshot is a consistent read of the session for display.
type InterviewSnapshot struct {
	ID           string                     `json:"id"`
	State        InterviewState             `json:"state"`
	Config       domain.InterviewConfig     `json:"config"`
	Questions    []domain.Question          `json:"questions,omitempty"`
	Index        int                        `json:"index"`
	Answer       string                     `json:"answer,omitempty"`
	Feedback     *domain.Evaluation         `json:"feedback,omitempty"`
	Completed    []domain.CompletedQuestion `json:"completed,omitempty"`
	AverageScore float64                    `json:"averageScore"`
	Capturing    bool                       `json:"capturing"`
	VoiceEnabled bool                       `json:"voiceEnabled"`
}

// InterviewSession drives one speech-capable Q&A loop:
// setup → waiting → asking → listening → feedback → {asking | complete},
// with complete → setup via Reset. All mutation goes through the mutex; the
// network and playback waits happen outside of it.
type InterviewSession struct {
	id            string
	client        evaluator.Client
	speaker       speech.Speaker
	recognizer    speech.Recognizer
	fallbackDelay time.Duration
	now           func() time.Time

	mu           sync.Mutex
	state        InterviewState
	cfg          domain.InterviewConfig
	questions    []domain.Question
	index        int
	answer       string
	feedback     *domain.Evaluation
	completed    []domain.CompletedQuestion
	voiceEnabled bool
	generating   bool
	evaluating   bool
	epoch        int
	stopCapture  func()
	cancelSpeak  context.CancelFunc
	lastActive   time.Time
	events       chan InterviewEvent
	closed       bool
}

// InterviewOption configures a new session.
type InterviewOption func(*InterviewSession)

// WithSpeech wires playback and capture devices into the session.
func WithSpeech(speaker speech.Speaker, recognizer speech.Recognizer) InterviewOption {
	return func(s *InterviewSession) {
		s.speaker = speaker
		s.recognizer = recognizer
	}
}

// WithFallbackDelay overrides the asking→listening fallback delay used when
// playback is unavailable.
func WithFallbackDelay(d time.Duration) InterviewOption {
	return func(s *InterviewSession) {
		s.fallbackDelay = d
	}
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) InterviewOption {
	return func(s *InterviewSession) {
		s.now = now
	}
}

func NewInterviewSession(id string, client evaluator.Client, opts ...InterviewOption) *InterviewSession {
	s := &InterviewSession{
		id:            id,
		client:        client,
		fallbackDelay: 3 * time.Second,
		now:           time.Now,
		state:         StateSetup,
		voiceEnabled:  true,
		events:        make(chan InterviewEvent, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *InterviewSession) ID() string { return s.id }

// Events is the stream of asynchronous session changes. It is closed by Close.
func (s *InterviewSession) Events() <-chan InterviewEvent { return s.events }

// State returns the current phase.
func (s *InterviewSession) State() InterviewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetVoiceEnabled toggles playback for subsequent questions.
func (s *InterviewSession) SetVoiceEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceEnabled = enabled
}

// Generate fetches the question list for cfg and moves setup → waiting.
// A concurrent call is rejected while one is in flight; on failure or an
// empty question list the session stays in setup and the error is surfaced
// to the caller. A response that lands after Reset is discarded.
func (s *InterviewSession) Generate(ctx context.Context, cfg domain.InterviewConfig) error {
	s.mu.Lock()
	if s.state != StateSetup {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	if s.generating {
		s.mu.Unlock()
		return domain.ErrGenerateInProgress
	}
	s.generating = true
	s.touchLocked()
	epoch := s.epoch
	s.mu.Unlock()

	questions, err := s.client.GenerateInterviewQuestions(ctx, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	if s.epoch != epoch {
		// Session was reset while the request was in flight; drop the result.
		return nil
	}
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}
	s.cfg = cfg
	s.questions = questions
	s.index = 0
	s.state = StateWaiting
	s.emitLocked(InterviewEvent{Kind: "state", State: StateWaiting})
	return nil
}

// Start moves waiting → asking and kicks off question playback.
func (s *InterviewSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateWaiting {
		return domain.ErrInvalidTransition
	}
	s.touchLocked()
	s.beginAskingLocked()
	return nil
}

// beginAskingLocked enters the asking state and schedules the transition to
// listening: after playback completes, or after the fallback delay when no
// playback happens. Callers hold the lock.
func (s *InterviewSession) beginAskingLocked() {
	s.state = StateAsking
	s.emitLocked(InterviewEvent{Kind: "state", State: StateAsking})

	epoch := s.epoch
	text := s.questions[s.index].Text

	var done <-chan struct{}
	if s.voiceEnabled && s.speaker != nil {
		if s.cancelSpeak != nil {
			s.cancelSpeak()
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.cancelSpeak = cancel
		if ch, err := s.speaker.Speak(ctx, text); err == nil {
			done = ch
		}
	}
	fallback := s.fallbackDelay

	go func() {
		if done != nil {
			<-done
		} else {
			time.Sleep(fallback)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch || s.state != StateAsking {
			return
		}
		s.state = StateListening
		s.emitLocked(InterviewEvent{Kind: "state", State: StateListening})
	}()
}

// SubmitAnswer evaluates the current answer. Empty or whitespace-only input
// is rejected with ErrEmptyAnswer and changes nothing; callers treat that as
// a silent no-op. On evaluation failure the session stays in listening.
func (s *InterviewSession) SubmitAnswer(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	if text == "" {
		s.mu.Unlock()
		return domain.ErrEmptyAnswer
	}
	if s.evaluating {
		s.mu.Unlock()
		return domain.ErrSubmitInProgress
	}
	s.stopCaptureLocked()
	s.evaluating = true
	s.answer = text
	s.touchLocked()
	epoch := s.epoch
	cfg := s.cfg
	question := s.questions[s.index]
	s.mu.Unlock()

	eval, err := s.client.EvaluateAnswer(ctx, cfg, question.Text, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluating = false
	if s.epoch != epoch {
		return nil
	}
	if err != nil {
		return err
	}
	s.feedback = &eval
	s.completed = append(s.completed, domain.CompletedQuestion{
		Question:   question,
		Answer:     text,
		Evaluation: eval,
	})
	s.state = StateFeedback
	s.emitLocked(InterviewEvent{Kind: "state", State: StateFeedback})
	return nil
}

// Advance moves feedback → asking for the next question, or feedback →
// complete after the last one.
func (s *InterviewSession) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFeedback {
		return domain.ErrInvalidTransition
	}
	s.touchLocked()
	if s.index+1 >= len(s.questions) {
		s.state = StateComplete
		s.emitLocked(InterviewEvent{Kind: "state", State: StateComplete})
		return nil
	}
	s.index++
	s.answer = ""
	s.feedback = nil
	s.beginAskingLocked()
	return nil
}

// Reset clears all session state, releases speech resources, and returns to
// setup. In-flight network responses for the old run are discarded.
func (s *InterviewSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.emitLocked(InterviewEvent{Kind: "state", State: StateSetup})
}

func (s *InterviewSession) resetLocked() {
	s.epoch++
	s.stopCaptureLocked()
	if s.cancelSpeak != nil {
		s.cancelSpeak()
		s.cancelSpeak = nil
	}
	s.state = StateSetup
	s.cfg = domain.InterviewConfig{}
	s.questions = nil
	s.index = 0
	s.answer = ""
	s.feedback = nil
	s.completed = nil
	s.touchLocked()
}

// StartCapture begins continuous transcription. Only permitted while
// listening; transcripts overwrite the pending answer live.
func (s *InterviewSession) StartCapture(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateListening {
		return domain.ErrInvalidTransition
	}
	if s.recognizer == nil {
		return speech.ErrUnavailable
	}
	s.stopCaptureLocked()
	epoch := s.epoch
	stop, err := s.recognizer.Start(ctx, func(text string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch || s.state != StateListening {
			return
		}
		s.answer = text
		s.emitLocked(InterviewEvent{Kind: "transcript", Transcript: text})
	})
	if err != nil {
		return err
	}
	s.stopCapture = stop
	s.touchLocked()
	return nil
}

// StopCapture ends transcription without clearing the captured answer.
func (s *InterviewSession) StopCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCaptureLocked()
}

func (s *InterviewSession) stopCaptureLocked() {
	if s.stopCapture != nil {
		s.stopCapture()
		s.stopCapture = nil
	}
}

// Capturing reports whether a transcription session is live.
func (s *InterviewSession) Capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCapture != nil
}

// SetAnswer replaces the pending answer text (typed input path).
func (s *InterviewSession) SetAnswer(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateListening {
		return domain.ErrInvalidTransition
	}
	s.answer = text
	s.touchLocked()
	return nil
}

// AverageScore is the mean of recorded evaluation scores, 0 when none exist.
func (s *InterviewSession) AverageScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.averageLocked()
}

func (s *InterviewSession) averageLocked() float64 {
	if len(s.completed) == 0 {
		return 0
	}
	total := 0
	for _, c := range s.completed {
		total += c.Evaluation.Score
	}
	return float64(total) / float64(len(s.completed))
}

// Snapshot returns a consistent view of the session.
func (s *InterviewSession) Snapshot() InterviewSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := InterviewSnapshot{
		ID:           s.id,
		State:        s.state,
		Config:       s.cfg,
		Index:        s.index,
		Answer:       s.answer,
		Feedback:     s.feedback,
		AverageScore: s.averageLocked(),
		Capturing:    s.stopCapture != nil,
		VoiceEnabled: s.voiceEnabled,
	}
	snap.Questions = append(snap.Questions, s.questions...)
	snap.Completed = append(snap.Completed, s.completed...)
	return snap
}

// LastActive reports when the session was last touched.
func (s *InterviewSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close releases speech resources and closes the event stream. The session
// must not be used afterward.
func (s *InterviewSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetLocked()
	s.closed = true
	close(s.events)
}

func (s *InterviewSession) touchLocked() {
	s.lastActive = s.now()
}

// emitLocked pushes an event without blocking; when the buffer is full the
// oldest event is dropped so a slow consumer cannot stall the session.
func (s *InterviewSession) emitLocked(ev InterviewEvent) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- ev:
		default:
		}
	}
}
