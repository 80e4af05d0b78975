// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the requests the interview adapters
// build and to feed controlled replies without a live model.
//
// Example:
//
//	p := &mock.Provider{Responses: []string{"safe", "true"}}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/voxhire/voxhire/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
//
// Each Complete call consumes the next entry of Responses; when Responses is
// exhausted the last entry is repeated. Set Err to make every call fail.
type Provider struct {
	mu    sync.Mutex
	calls []CompleteCall
	next  int

	// Responses is the scripted sequence of reply contents.
	Responses []string

	// Err, if non-nil, is returned by every Complete call.
	Err error
}

// Compile-time assertion that Provider satisfies the llm.Provider interface.
var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, CompleteCall{Ctx: ctx, Req: req})

	if p.Err != nil {
		return nil, p.Err
	}

	var content string
	if len(p.Responses) > 0 {
		idx := p.next
		if idx >= len(p.Responses) {
			idx = len(p.Responses) - 1
		}
		content = p.Responses[idx]
		p.next++
	}
	return &llm.CompletionResponse{Content: content}, nil
}

// Calls returns a copy of all recorded Complete invocations.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.calls))
	copy(out, p.calls)
	return out
}
