package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"skillswap/internal/app/middleware"
	appoutbox "skillswap/internal/app/outbox"
	infraoutbox "skillswap/internal/infra/outbox"
)

type outboxWriter struct{ tx *sql.Tx }

func (w outboxWriter) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO outbox (id, name, aggregate, payload, headers, occurred_at, state, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Name, record.Aggregate, record.Payload, string(headers),
		formatTime(record.OccurredAt), infraoutbox.StateNew, formatTime(time.Now()))
	return err
}

// Claim picks the oldest due record, or a claim whose lease ran out.
func (s *Store) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	var (
		p       infraoutbox.Pending
		headers string
		at      string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, aggregate, payload, headers, occurred_at, attempts FROM outbox
		WHERE (state IN (?, ?) AND next_attempt_at <= ?)
		   OR (state = ? AND claimed_at <= ?)
		ORDER BY rowid LIMIT 1`,
		infraoutbox.StateNew, infraoutbox.StateFailed, formatTime(now),
		infraoutbox.StateClaimed, formatTime(now.Add(-infraoutbox.ClaimLease)),
	).Scan(&p.ID, &p.Name, &p.Aggregate, &p.Payload, &headers, &at, &p.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(headers), &p.Headers); err != nil {
		return nil, err
	}
	if p.OccurredAt, err = parseTime(at); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE outbox SET state = ?, claimed_at = ?, claimed_by = ? WHERE id = ?`,
		infraoutbox.StateClaimed, formatTime(now), workerID, p.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET state = ?, last_error = NULL WHERE id = ?`, infraoutbox.StateSent, id)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox SET state = ?, attempts = attempts + 1, next_attempt_at = ?, last_error = ?
		WHERE id = ?`,
		infraoutbox.StateFailed, formatTime(next), errMsg, id)
	return err
}

// IdempotencyStore keeps replayable command results in the idempotency table.
type IdempotencyStore struct {
	db *sql.DB
}

func (s *Store) Idempotency() *IdempotencyStore {
	return &IdempotencyStore{db: s.db}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	var at string
	err := s.db.QueryRowContext(ctx, `SELECT payload, occurred_at FROM idempotency WHERE key = ?`, key).Scan(&rec.Payload, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	if rec.OccurredAt, err = parseTime(at); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

// Save keeps the first record stored under a key.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO idempotency (key, payload, occurred_at) VALUES (?, ?, ?)`,
		rec.Key, rec.Payload, formatTime(rec.OccurredAt))
	return err
}

// Inbox records consumed message ids for one consumer.
type Inbox struct {
	db       *sql.DB
	consumer string
}

func (s *Store) Inbox(consumer string) *Inbox {
	return &Inbox{db: s.db, consumer: consumer}
}

// Seen records eventID and reports whether it was already recorded.
func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	res, err := i.db.ExecContext(ctx, `INSERT OR IGNORE INTO inbox (consumer, event_id, seen_at) VALUES (?, ?, ?)`,
		i.consumer, eventID, formatTime(time.Now()))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM inbox WHERE consumer = ? AND event_id = ?`, i.consumer, eventID)
	return err
}

var _ infraoutbox.ClaimStore = (*Store)(nil)
var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
