package speech

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnavailable indicates no playback or capture device is present.
var ErrUnavailable = errors.New("speech device unavailable")

// TimedSpeaker is a Speaker that completes after a fixed delay.
type TimedSpeaker struct {
	Delay time.Duration
	// Fail makes every Speak call return ErrUnavailable.
	Fail bool

	mu     sync.Mutex
	spoken []string
	cancel context.CancelFunc
}

func NewTimedSpeaker(delay time.Duration) *TimedSpeaker {
	return &TimedSpeaker{Delay: delay}
}

func (m *TimedSpeaker) Speak(ctx context.Context, text string) (<-chan struct{}, error) {
	m.mu.Lock()
	if m.Fail {
		m.mu.Unlock()
		return nil, ErrUnavailable
	}
	if m.cancel != nil {
		m.cancel()
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.spoken = append(m.spoken, text)
	delay := m.Delay
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}()
	return done, nil
}

// Spoken returns every text passed to Speak, in order.
func (m *TimedSpeaker) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.spoken))
	copy(out, m.spoken)
	return out
}

// ScriptedRecognizer is a Recognizer whose transcripts are delivered by hand
// via Emit. It stands in wherever no real capture device is wired.
type ScriptedRecognizer struct {
	// Fail makes every Start call return ErrUnavailable.
	Fail bool

	mu        sync.Mutex
	onText    func(string)
	capturing bool
	starts    int
}

func NewScriptedRecognizer() *ScriptedRecognizer {
	return &ScriptedRecognizer{}
}

func (m *ScriptedRecognizer) Start(_ context.Context, onTranscript func(text string)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return nil, ErrUnavailable
	}
	m.onText = onTranscript
	m.capturing = true
	m.starts++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.capturing = false
		m.onText = nil
	}, nil
}

// Emit delivers a transcript to the active capture, if any.
func (m *ScriptedRecognizer) Emit(text string) {
	m.mu.Lock()
	fn := m.onText
	m.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

// Capturing reports whether a capture session is live.
func (m *ScriptedRecognizer) Capturing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capturing
}

// Starts returns how many captures were started.
func (m *ScriptedRecognizer) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}
