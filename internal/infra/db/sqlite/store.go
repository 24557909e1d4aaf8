package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	appoutbox "skillswap/internal/app/outbox"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainlistings "skillswap/internal/domain/listings"
	domainmeeting "skillswap/internal/domain/meeting"
	domainnotification "skillswap/internal/domain/notification"
	domainrating "skillswap/internal/domain/rating"
	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

// ErrConcurrentUpdate is returned when a versioned update matches no row.
var ErrConcurrentUpdate = fmt.Errorf("%w: sqlite", errs.ErrConflict)

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store keeps every aggregate in one SQLite file. A single connection
// serializes transactions, which is what the swap accept path relies on.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the database file and schema when missing. Use ":memory:"
// for a throwaway database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sqlite")
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating database directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, logger: logger}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}
	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers; used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			roles         TEXT NOT NULL,
			public        INTEGER NOT NULL,
			active        INTEGER NOT NULL,
			banned        INTEGER NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS listings (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL,
			name        TEXT NOT NULL,
			name_key    TEXT NOT NULL,
			direction   TEXT NOT NULL,
			description TEXT NOT NULL,
			active      INTEGER NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			UNIQUE (owner_id, direction, name_key)
		);

		CREATE TABLE IF NOT EXISTS swaps (
			id                   TEXT PRIMARY KEY,
			requester_id         TEXT NOT NULL,
			receiver_id          TEXT NOT NULL,
			offered_listing_id   TEXT NOT NULL,
			requested_listing_id TEXT NOT NULL,
			offered_skill        TEXT NOT NULL,
			requested_skill      TEXT NOT NULL,
			message              TEXT NOT NULL,
			status               TEXT NOT NULL,
			created_at           TEXT NOT NULL,
			updated_at           TEXT NOT NULL,
			responded_at         TEXT,
			completed_at         TEXT,
			version              INTEGER NOT NULL,
			UNIQUE (requester_id, receiver_id, offered_listing_id, requested_listing_id)
		);

		CREATE INDEX IF NOT EXISTS idx_swaps_requester ON swaps(requester_id);
		CREATE INDEX IF NOT EXISTS idx_swaps_receiver ON swaps(receiver_id);

		CREATE TABLE IF NOT EXISTS chats (
			id         TEXT PRIMARY KEY,
			swap_id    TEXT NOT NULL UNIQUE REFERENCES swaps(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			sender_id  TEXT NOT NULL,
			kind       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at, seq);

		CREATE TABLE IF NOT EXISTS meetings (
			id               TEXT PRIMARY KEY,
			chat_id          TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			organizer_id     TEXT NOT NULL,
			type             TEXT NOT NULL,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL,
			scheduled_at     TEXT,
			duration_minutes INTEGER NOT NULL,
			url              TEXT NOT NULL,
			room_id          TEXT NOT NULL,
			status           TEXT NOT NULL,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL,
			started_at       TEXT,
			ended_at         TEXT,
			version          INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_meetings_chat ON meetings(chat_id);

		CREATE TABLE IF NOT EXISTS notifications (
			id           TEXT PRIMARY KEY,
			recipient_id TEXT NOT NULL,
			kind         TEXT NOT NULL,
			title        TEXT NOT NULL,
			body         TEXT NOT NULL,
			ref_id       TEXT NOT NULL,
			read         INTEGER NOT NULL,
			created_at   TEXT NOT NULL,
			read_at      TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at);

		CREATE TABLE IF NOT EXISTS ratings (
			id         TEXT PRIMARY KEY,
			swap_id    TEXT NOT NULL REFERENCES swaps(id) ON DELETE CASCADE,
			rater_id   TEXT NOT NULL,
			ratee_id   TEXT NOT NULL,
			score      INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
			comment    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (swap_id, rater_id)
		);

		CREATE INDEX IF NOT EXISTS idx_ratings_ratee ON ratings(ratee_id);

		CREATE TABLE IF NOT EXISTS outbox (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			aggregate       TEXT NOT NULL,
			payload         BLOB NOT NULL,
			headers         TEXT NOT NULL,
			occurred_at     TEXT NOT NULL,
			state           TEXT NOT NULL,
			attempts        INTEGER NOT NULL DEFAULT 0,
			next_attempt_at TEXT NOT NULL,
			claimed_at      TEXT,
			claimed_by      TEXT,
			last_error      TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_outbox_state ON outbox(state, next_attempt_at);

		CREATE TABLE IF NOT EXISTS idempotency (
			key         TEXT PRIMARY KEY,
			payload     BLOB NOT NULL,
			occurred_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS inbox (
			consumer TEXT NOT NULL,
			event_id TEXT NOT NULL,
			seen_at  TEXT NOT NULL,
			PRIMARY KEY (consumer, event_id)
		);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Begin opens a transaction. ReadOnly is advisory; the single connection
// already isolates units from each other.
func (s *Store) Begin(ctx context.Context, _ uow.TxOptions) (uow.UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	return &Unit{tx: tx}, nil
}

// Unit implements uow.UnitOfWork over one *sql.Tx.
type Unit struct {
	tx   *sql.Tx
	done bool
}

func (u *Unit) Users() domainuser.Repository { return userRepo{u.tx} }

func (u *Unit) Listings() domainlistings.Repository { return listingRepo{u.tx} }

func (u *Unit) Swaps() domainswap.Repository { return swapRepo{u.tx} }

func (u *Unit) Chats() domainchat.Repository { return chatRepo{u.tx} }

func (u *Unit) Messages() domainchat.MessageRepository { return messageRepo{u.tx} }

func (u *Unit) Meetings() domainmeeting.Repository { return meetingRepo{u.tx} }

func (u *Unit) Notifications() domainnotification.Repository { return notificationRepo{u.tx} }

func (u *Unit) Ratings() domainrating.Repository { return ratingRepo{u.tx} }

func (u *Unit) Totals() uow.TotalsReader { return totalsReader{u.tx} }

func (u *Unit) Outbox() appoutbox.Outbox { return outboxWriter{u.tx} }

func (u *Unit) Commit(context.Context) error {
	if u.done {
		return sql.ErrTxDone
	}
	u.done = true
	return u.tx.Commit()
}

// Rollback is a no-op once the unit has finished.
func (u *Unit) Rollback(context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(timeLayout, raw)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// insertedOne reports whether an INSERT ... DO NOTHING wrote its row.
func insertedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n == 1, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func errConflict(kind, id string) error {
	return fmt.Errorf("%w: %s %s changed since it was read", ErrConcurrentUpdate, kind, id)
}

type scanner interface {
	Scan(dest ...any) error
}

var _ uow.UoWFactory = (*Store)(nil)
var _ uow.UnitOfWork = (*Unit)(nil)
