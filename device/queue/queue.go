package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	KindClockIn  = "clock-in"
	KindClockOut = "clock-out"
)

const schema = `
CREATE TABLE IF NOT EXISTS pending_mutations (
	seq               INTEGER PRIMARY KEY AUTOINCREMENT,
	kind              TEXT NOT NULL,
	payload           TEXT NOT NULL,
	idempotency_token TEXT NOT NULL UNIQUE,
	captured_at       TEXT NOT NULL,
	attempts          INTEGER NOT NULL DEFAULT 0,
	last_error        TEXT NOT NULL DEFAULT ''
);`

// Mutation is one clock event captured while the device was offline. Seq
// preserves capture order; a clock-out never replays before its clock-in.
type Mutation struct {
	Seq              int64
	Kind             string
	Payload          []byte
	IdempotencyToken string
	CapturedAt       time.Time
	Attempts         int
	LastError        string
}

// Queue is a durable FIFO of unsent clock events, one sqlite file per device.
type Queue struct {
	db *sql.DB
}

func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create queue schema: %w", err)
	}
	return &Queue{db: db}, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

func (q *Queue) Enqueue(ctx context.Context, kind string, payload []byte, idempotencyToken string) error {
	if kind != KindClockIn && kind != KindClockOut {
		return fmt.Errorf("unknown mutation kind %q", kind)
	}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO pending_mutations (kind, payload, idempotency_token, captured_at) VALUES (?, ?, ?, ?)`,
		kind, string(payload), idempotencyToken, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

// Pending returns unsent mutations in capture order.
func (q *Queue) Pending(ctx context.Context) ([]Mutation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT seq, kind, payload, idempotency_token, captured_at, attempts, last_error
		 FROM pending_mutations ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Mutation
	for rows.Next() {
		var m Mutation
		var payload, capturedAt string
		if err := rows.Scan(&m.Seq, &m.Kind, &payload, &m.IdempotencyToken, &capturedAt, &m.Attempts, &m.LastError); err != nil {
			return nil, err
		}
		m.Payload = []byte(payload)
		m.CapturedAt, _ = time.Parse(time.RFC3339, capturedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Remove deletes a mutation the server has accepted.
func (q *Queue) Remove(ctx context.Context, seq int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM pending_mutations WHERE seq = ?`, seq)
	return err
}

// MarkFailed keeps the row but records the failure so support can see why a
// clock event has not reached the server.
func (q *Queue) MarkFailed(ctx context.Context, seq int64, reason string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE pending_mutations SET attempts = attempts + 1, last_error = ? WHERE seq = ?`,
		reason, seq)
	return err
}
