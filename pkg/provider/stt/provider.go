// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider captures one candidate utterance per Listen call: it records
// until a sustained stretch of silence follows detected speech, or until the
// candidate stays silent for the whole patience window.
package stt

import (
	"context"
	"time"
)

// ListenConfig tunes a single utterance capture.
type ListenConfig struct {
	// SilenceStop is how long detected speech must be followed by silence
	// before the utterance is considered finished.
	SilenceStop time.Duration

	// MaxWait is how long to wait for any speech at all before giving up
	// with an empty transcript.
	MaxWait time.Duration
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Listen captures one utterance and returns its transcript.
	//
	// An empty transcript with a nil error means the capture completed
	// without hearing usable speech. Cancelling ctx aborts the capture and
	// returns ctx.Err().
	Listen(ctx context.Context, cfg ListenConfig) (string, error)
}
