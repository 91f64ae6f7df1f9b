// Package speech defines the voice capabilities an interview session can be
// wired with. Both are optional: a session without them degrades to text-only.
package speech

import "context"

// Speaker plays a piece of text aloud. Speak returns a channel that is closed
// when playback finishes. Starting a new playback interrupts any prior one;
// at most one playback is active per Speaker. Cancelling ctx stops playback.
type Speaker interface {
	Speak(ctx context.Context, text string) (<-chan struct{}, error)
}

// Recognizer captures speech continuously and reports transcripts through the
// callback. Each transcript is the full utterance so far, so callers overwrite
// rather than append. The returned stop function ends capture without emitting
// further transcripts; starting a new capture cancels the previous one.
type Recognizer interface {
	Start(ctx context.Context, onTranscript func(text string)) (stop func(), err error)
}
