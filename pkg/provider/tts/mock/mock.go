// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxhire/voxhire/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the utterance passed to Synthesize.
	Text string
	// Kind is the speech kind passed to Synthesize.
	Kind tts.SpeechKind
}

// Provider is a mock implementation of tts.Provider.
//
// Every call returns Audio (defaulting to a small placeholder clip when nil)
// unless Err is set, in which case every call fails.
type Provider struct {
	mu    sync.Mutex
	calls []SynthesizeCall

	// Audio is the clip returned by every Synthesize call.
	Audio []byte

	// Err, if non-nil, is returned by every Synthesize call.
	Err error
}

// Compile-time assertion that Provider satisfies the tts.Provider interface.
var _ tts.Provider = (*Provider)(nil)

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, kind tts.SpeechKind) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, SynthesizeCall{Ctx: ctx, Text: text, Kind: kind})

	if p.Err != nil {
		return nil, p.Err
	}
	if p.Audio != nil {
		return p.Audio, nil
	}
	return []byte("mp3:" + text), nil
}

// Calls returns a copy of all recorded Synthesize invocations.
func (p *Provider) Calls() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SynthesizeCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// Texts returns just the synthesized texts in call order.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	texts := make([]string, len(p.calls))
	for i, c := range p.calls {
		texts[i] = c.Text
	}
	return texts
}
