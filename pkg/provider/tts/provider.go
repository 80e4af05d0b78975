// Package tts defines the Provider interface for Text-to-Speech backends.
package tts

import "context"

// SpeechKind categorizes an utterance so a backend can vary delivery (voice,
// pacing) by context. Backends may ignore it.
type SpeechKind string

// Speech kinds used by the interview engine.
const (
	KindSystem      SpeechKind = "system"
	KindQuestion    SpeechKind = "question"
	KindTransition  SpeechKind = "transition"
	KindModeration  SpeechKind = "moderation"
	KindRetry       SpeechKind = "retry"
	KindSkip        SpeechKind = "skip"
	KindTermination SpeechKind = "termination"
	KindCompletion  SpeechKind = "completion"
)

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text as encoded audio (MP3 unless the
	// implementation documents otherwise) and returns the complete clip.
	// Returns an error if synthesis fails or ctx is cancelled first.
	Synthesize(ctx context.Context, text string, kind SpeechKind) ([]byte, error)
}
