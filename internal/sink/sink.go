// Package sink persists completed interview topic blocks.
package sink

import (
	"context"
	"log/slog"
	"time"
)

// QA is one question/answer pair.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TurnRecord is the durable result of one covered topic: the main exchange
// plus every follow-up exchange, in order.
type TurnRecord struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Topic        string    `json:"principle"`
	MainQuestion QA        `json:"main_question"`
	Followups    []QA      `json:"followups"`
	Timestamp    time.Time `json:"timestamp"`
}

// Sink appends turn records to durable storage.
type Sink interface {
	// Append stores one completed topic block.
	Append(ctx context.Context, rec TurnRecord) error
}

// LogSink is a Sink that only logs records. It backs deployments without a
// configured database so interviews still run end to end.
type LogSink struct {
	Logger *slog.Logger
}

// Compile-time assertion that LogSink satisfies the Sink interface.
var _ Sink = (*LogSink)(nil)

// Append implements Sink by logging the record's identity fields.
func (s *LogSink) Append(ctx context.Context, rec TurnRecord) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("turn record not persisted; no storage configured",
		"session_id", rec.SessionID,
		"user_id", rec.UserID,
		"topic", rec.Topic,
		"followups", len(rec.Followups),
	)
	return nil
}
