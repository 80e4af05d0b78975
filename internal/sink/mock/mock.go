// Package mock provides a test double for the sink.Sink interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxhire/voxhire/internal/sink"
)

// Sink is an in-memory implementation of sink.Sink that records every
// appended turn record. Set Err to make Append fail.
type Sink struct {
	mu      sync.Mutex
	records []sink.TurnRecord

	// Err, if non-nil, is returned by every Append call.
	Err error
}

// Compile-time assertion that Sink satisfies the sink.Sink interface.
var _ sink.Sink = (*Sink)(nil)

// Append implements sink.Sink.
func (s *Sink) Append(ctx context.Context, rec sink.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of all appended records in order.
func (s *Sink) Records() []sink.TurnRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sink.TurnRecord, len(s.records))
	copy(out, s.records)
	return out
}
