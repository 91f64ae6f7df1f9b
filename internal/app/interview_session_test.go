package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"mockprep-service/internal/domain"
	"mockprep-service/internal/evaluator"
	"mockprep-service/internal/speech"
)

func waitForState(t *testing.T, s *InterviewSession, want InterviewState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still in %s", want, s.State())
}

func newVoiceSession(client evaluator.Client) (*InterviewSession, *speech.TimedSpeaker, *speech.ScriptedRecognizer) {
	speaker := speech.NewTimedSpeaker(time.Millisecond)
	recognizer := speech.NewScriptedRecognizer()
	session := NewInterviewSession("iv-1", client,
		WithSpeech(speaker, recognizer),
		WithFallbackDelay(10*time.Millisecond),
	)
	return session, speaker, recognizer
}

func TestInterviewFullFlow(t *testing.T) {
	client := evaluator.NewScripted()
	client.InterviewQuestions = []domain.Question{{ID: "1", Text: "Why Go?"}}
	client.Evaluation = domain.Evaluation{Score: 9, Feedback: "Great job"}
	session, speaker, _ := newVoiceSession(client)
	defer session.Close()

	ctx := context.Background()
	if err := session.Generate(ctx, domain.InterviewConfig{InterviewType: "backend_developer"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := session.State(); got != StateWaiting {
		t.Fatalf("expected waiting after generate, got %s", got)
	}

	if err := session.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, session, StateListening)
	if spoken := speaker.Spoken(); len(spoken) != 1 || spoken[0] != "Why Go?" {
		t.Fatalf("expected question playback, got %v", spoken)
	}

	if err := session.SubmitAnswer(ctx, "Because of goroutines."); err != nil {
		t.Fatalf("submit answer: %v", err)
	}
	if got := session.State(); got != StateFeedback {
		t.Fatalf("expected feedback, got %s", got)
	}

	if err := session.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got := session.State(); got != StateComplete {
		t.Fatalf("expected complete after last question, got %s", got)
	}
	if avg := session.AverageScore(); avg != 9.0 {
		t.Fatalf("expected average score 9.0, got %v", avg)
	}
}

func TestGenerateFailureStaysInSetup(t *testing.T) {
	client := evaluator.NewScripted()
	client.Err = context.DeadlineExceeded
	session, _, _ := newVoiceSession(client)
	defer session.Close()

	err := session.Generate(context.Background(), domain.InterviewConfig{})
	if err == nil {
		t.Fatal("expected generate error")
	}
	if got := session.State(); got != StateSetup {
		t.Fatalf("expected setup after failure, got %s", got)
	}
	// The error path leaves the session retryable.
	client.Err = nil
	if err := session.Generate(context.Background(), domain.InterviewConfig{}); err != nil {
		t.Fatalf("retry generate: %v", err)
	}
	if got := session.State(); got != StateWaiting {
		t.Fatalf("expected waiting after retry, got %s", got)
	}
}

func TestGenerateEmptyQuestionListStaysInSetup(t *testing.T) {
	client := evaluator.NewScripted()
	client.InterviewQuestions = []domain.Question{}
	session, _, _ := newVoiceSession(client)
	defer session.Close()

	err := session.Generate(context.Background(), domain.InterviewConfig{})
	if err != domain.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if got := session.State(); got != StateSetup {
		t.Fatalf("expected setup after empty list, got %s", got)
	}
	if err := session.Start(); err != domain.ErrInvalidTransition {
		t.Fatalf("expected start rejected without questions, got %v", err)
	}

	// A later generation with real questions proceeds normally.
	client.InterviewQuestions = []domain.Question{{ID: "1", Text: "Why Go?"}}
	if err := session.Generate(context.Background(), domain.InterviewConfig{}); err != nil {
		t.Fatalf("retry generate: %v", err)
	}
	if got := session.State(); got != StateWaiting {
		t.Fatalf("expected waiting after retry, got %s", got)
	}
}

func TestGenerateRejectsConcurrentCalls(t *testing.T) {
	client := newGate(evaluator.NewScripted())
	session, _, _ := newVoiceSession(client)
	defer session.Close()

	done := make(chan error, 1)
	go func() {
		done <- session.Generate(context.Background(), domain.InterviewConfig{})
	}()
	client.waitEntered(t)

	if err := session.Generate(context.Background(), domain.InterviewConfig{}); err != domain.ErrGenerateInProgress {
		t.Fatalf("expected ErrGenerateInProgress, got %v", err)
	}

	client.release()
	if err := <-done; err != nil {
		t.Fatalf("first generate: %v", err)
	}
}

func TestSubmitEmptyAnswerIsNoOp(t *testing.T) {
	client := evaluator.NewScripted()
	session, _, _ := newVoiceSession(client)
	defer session.Close()

	mustReachListening(t, session)

	if err := session.SubmitAnswer(context.Background(), "   "); err != domain.ErrEmptyAnswer {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
	if got := session.State(); got != StateListening {
		t.Fatalf("expected listening after empty submit, got %s", got)
	}
	if client.Calls("evaluate-answer") != 0 {
		t.Fatal("empty answer must not reach the evaluator")
	}
}

func TestSubmitFailureStaysInListening(t *testing.T) {
	client := evaluator.NewScripted()
	session, _, _ := newVoiceSession(client)
	defer session.Close()

	mustReachListening(t, session)

	client.Err = context.DeadlineExceeded
	if err := session.SubmitAnswer(context.Background(), "answer"); err == nil {
		t.Fatal("expected evaluation error")
	}
	if got := session.State(); got != StateListening {
		t.Fatalf("expected listening after failure, got %s", got)
	}

	client.Err = nil
	if err := session.SubmitAnswer(context.Background(), "answer"); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if got := session.State(); got != StateFeedback {
		t.Fatalf("expected feedback after retry, got %s", got)
	}
}

func TestCaptureOverwritesAnswerLive(t *testing.T) {
	client := evaluator.NewScripted()
	session, _, recognizer := newVoiceSession(client)
	defer session.Close()

	mustReachListening(t, session)

	if err := session.StartCapture(context.Background()); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	recognizer.Emit("first dra")
	recognizer.Emit("first draft of the answer")
	session.StopCapture()
	if recognizer.Capturing() {
		t.Fatal("expected capture stopped")
	}

	snap := session.Snapshot()
	if snap.Answer != "first draft of the answer" {
		t.Fatalf("expected transcript kept after stop, got %q", snap.Answer)
	}
}

func TestCaptureOnlyWhileListening(t *testing.T) {
	client := evaluator.NewScripted()
	session, _, _ := newVoiceSession(client)
	defer session.Close()

	if err := session.StartCapture(context.Background()); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition in setup, got %v", err)
	}
}

func TestResetReleasesResourcesAndDiscardsStaleResponses(t *testing.T) {
	client := newGate(evaluator.NewScripted())
	session, _, recognizer := newVoiceSession(client)
	defer session.Close()

	done := make(chan error, 1)
	go func() {
		done <- session.Generate(context.Background(), domain.InterviewConfig{})
	}()
	client.waitEntered(t)

	session.Reset()
	client.release()
	if err := <-done; err != nil {
		t.Fatalf("stale generate should be dropped silently, got %v", err)
	}
	if got := session.State(); got != StateSetup {
		t.Fatalf("stale response must not leave setup, got %s", got)
	}

	// After reset the session runs a fresh flow.
	mustReachListening(t, session)
	if err := session.StartCapture(context.Background()); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	session.Reset()
	if recognizer.Capturing() {
		t.Fatal("reset must stop capture")
	}
}

func TestFallbackDelayWhenSpeakerUnavailable(t *testing.T) {
	client := evaluator.NewScripted()
	speaker := speech.NewTimedSpeaker(time.Millisecond)
	speaker.Fail = true
	session := NewInterviewSession("iv-2", client,
		WithSpeech(speaker, nil),
		WithFallbackDelay(10*time.Millisecond),
	)
	defer session.Close()

	if err := session.Generate(context.Background(), domain.InterviewConfig{}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := session.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, session, StateListening)
}

func TestAdvanceMovesToNextQuestion(t *testing.T) {
	client := evaluator.NewScripted() // two questions in the default script
	session, speaker, _ := newVoiceSession(client)
	defer session.Close()

	mustReachListening(t, session)
	if err := session.SubmitAnswer(context.Background(), "answer one"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := session.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	waitForState(t, session, StateListening)

	snap := session.Snapshot()
	if snap.Index != 1 || snap.Answer != "" || snap.Feedback != nil {
		t.Fatalf("expected cleared state on next question, got %+v", snap)
	}
	if spoken := speaker.Spoken(); len(spoken) != 2 {
		t.Fatalf("expected both questions spoken, got %v", spoken)
	}
}

func mustReachListening(t *testing.T, session *InterviewSession) {
	t.Helper()
	if err := session.Generate(context.Background(), domain.InterviewConfig{}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := session.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, session, StateListening)
}

// gate wraps a Scripted client and blocks each operation until released,
// for exercising in-flight behavior.
type gate struct {
	*evaluator.Scripted
	mu      sync.Mutex
	entered chan struct{}
	proceed chan struct{}
}

func newGate(inner *evaluator.Scripted) *gate {
	return &gate{
		Scripted: inner,
		entered:  make(chan struct{}, 8),
		proceed:  make(chan struct{}),
	}
}

func (g *gate) block() {
	g.entered <- struct{}{}
	<-g.proceed
}

func (g *gate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client call")
	}
}

func (g *gate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.proceed:
	default:
		close(g.proceed)
	}
}

func (g *gate) GenerateInterviewQuestions(ctx context.Context, cfg domain.InterviewConfig) ([]domain.Question, error) {
	g.block()
	return g.Scripted.GenerateInterviewQuestions(ctx, cfg)
}

func (g *gate) SubmitAnswers(ctx context.Context, cfg domain.TestConfig, questions []domain.Question, answers map[string]string) (domain.TestResult, error) {
	g.block()
	return g.Scripted.SubmitAnswers(ctx, cfg, questions, answers)
}
