// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxhire/voxhire/pkg/provider/stt"
)

// ListenCall records a single invocation of Listen.
type ListenCall struct {
	// Ctx is the context passed to Listen.
	Ctx context.Context
	// Cfg is the ListenConfig passed to Listen.
	Cfg stt.ListenConfig
}

// Provider is a mock implementation of stt.Provider.
//
// Each Listen call consumes the next entry of Transcripts; when Transcripts is
// exhausted the last entry is repeated, and an empty slice yields empty
// transcripts. Errs is consumed in lockstep with Transcripts: a non-nil entry
// at the same index makes that call fail, which lets tests script a transient
// failure followed by a successful retry.
type Provider struct {
	mu    sync.Mutex
	calls []ListenCall
	next  int

	// Transcripts is the scripted sequence of capture results.
	Transcripts []string

	// Errs optionally pairs an error with each scripted call.
	Errs []error
}

// Compile-time assertion that Provider satisfies the stt.Provider interface.
var _ stt.Provider = (*Provider)(nil)

// Listen implements stt.Provider.
func (p *Provider) Listen(ctx context.Context, cfg stt.ListenConfig) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, ListenCall{Ctx: ctx, Cfg: cfg})

	idx := p.next
	p.next++

	if idx < len(p.Errs) && p.Errs[idx] != nil {
		return "", p.Errs[idx]
	}

	if len(p.Transcripts) == 0 {
		return "", nil
	}
	if idx >= len(p.Transcripts) {
		idx = len(p.Transcripts) - 1
	}
	return p.Transcripts[idx], nil
}

// Calls returns a copy of all recorded Listen invocations.
func (p *Provider) Calls() []ListenCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ListenCall, len(p.calls))
	copy(out, p.calls)
	return out
}
