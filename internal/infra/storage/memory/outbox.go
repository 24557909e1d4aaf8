package memory

import (
	"context"
	"time"

	appoutbox "skillswap/internal/app/outbox"
	infraoutbox "skillswap/internal/infra/outbox"
)

type outboxWriter struct{ u *Unit }

func (w outboxWriter) Add(_ context.Context, record appoutbox.EventRecord) error {
	if err := w.u.writable(); err != nil {
		return err
	}
	w.u.st.outbox = append(w.u.st.outbox, &outboxRow{
		record:      record,
		state:       infraoutbox.StateNew,
		nextAttempt: time.Now().UnixNano(),
	})
	return nil
}

// Claim implements infraoutbox.ClaimStore over committed records.
func (s *Store) Claim(_ context.Context, _ string) (*infraoutbox.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, row := range s.state.outbox {
		due := (row.state == infraoutbox.StateNew || row.state == infraoutbox.StateFailed) && row.nextAttempt <= now.UnixNano()
		stale := row.state == infraoutbox.StateClaimed && row.claimedAt <= now.Add(-infraoutbox.ClaimLease).UnixNano()
		if !due && !stale {
			continue
		}
		row.state = infraoutbox.StateClaimed
		row.claimedAt = now.UnixNano()
		return &infraoutbox.Pending{EventRecord: row.record, Attempts: row.attempts}, nil
	}
	return nil, nil
}

func (s *Store) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row := s.outboxRow(id); row != nil {
		row.state = infraoutbox.StateSent
	}
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row := s.outboxRow(id); row != nil {
		row.state = infraoutbox.StateFailed
		row.attempts++
		row.nextAttempt = next.UnixNano()
		row.lastError = errMsg
	}
	return nil
}

// OutboxRecords returns committed records in insertion order with their state.
func (s *Store) OutboxRecords() ([]appoutbox.EventRecord, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]appoutbox.EventRecord, 0, len(s.state.outbox))
	states := make([]string, 0, len(s.state.outbox))
	for _, row := range s.state.outbox {
		records = append(records, row.record)
		states = append(states, row.state)
	}
	return records, states
}

func (s *Store) outboxRow(id string) *outboxRow {
	for _, row := range s.state.outbox {
		if row.record.ID == id {
			return row
		}
	}
	return nil
}

var _ infraoutbox.ClaimStore = (*Store)(nil)
