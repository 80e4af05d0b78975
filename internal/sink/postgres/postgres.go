// Package postgres provides a PostgreSQL-backed interaction log sink.
//
// Each turn record is stored as one row with its full payload in a JSONB
// column, keeping the schema stable while the record shape evolves.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxhire/voxhire/internal/sink"
)

// schema is idempotent and applied on startup.
const schema = `
CREATE TABLE IF NOT EXISTS interview_turns (
    id         BIGSERIAL PRIMARY KEY,
    session_id TEXT        NOT NULL,
    user_id    TEXT        NOT NULL,
    topic      TEXT        NOT NULL,
    record     JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS interview_turns_session_idx ON interview_turns (session_id);
CREATE INDEX IF NOT EXISTS interview_turns_user_idx    ON interview_turns (user_id);
`

// Sink is a PostgreSQL implementation of [sink.Sink].
// All methods are safe for concurrent use.
type Sink struct {
	pool *pgxpool.Pool
}

// Compile-time assertion that Sink satisfies the sink.Sink interface.
var _ sink.Sink = (*Sink)(nil)

// New establishes a connection pool to the database at dsn and ensures the
// interview_turns table exists.
func New(ctx context.Context, dsn string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: migrate: %w", err)
	}

	return &Sink{pool: pool}, nil
}

// Append implements [sink.Sink].
func (s *Sink) Append(ctx context.Context, rec sink.TurnRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres sink: marshal record: %w", err)
	}

	const q = `
		INSERT INTO interview_turns (session_id, user_id, topic, record, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = s.pool.Exec(ctx, q, rec.SessionID, rec.UserID, rec.Topic, payload, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres sink: append: %w", err)
	}
	return nil
}

// BySession returns all records of one session in insertion order.
func (s *Sink) BySession(ctx context.Context, sessionID string) ([]sink.TurnRecord, error) {
	const q = `
		SELECT record
		FROM   interview_turns
		WHERE  session_id = $1
		ORDER  BY id`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: by session: %w", err)
	}
	defer rows.Close()

	var records []sink.TurnRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres sink: scan record: %w", err)
		}
		var rec sink.TurnRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("postgres sink: unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres sink: iterate records: %w", err)
	}
	return records, nil
}

// Close releases all connections held by the underlying pool.
func (s *Sink) Close() {
	s.pool.Close()
}
