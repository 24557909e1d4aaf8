package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"skillswap/internal/app/outbox"
	"skillswap/internal/app/policies"
	"skillswap/internal/app/uow"
	domainnotification "skillswap/internal/domain/notification"
	"skillswap/internal/domain/shared/events"
)

// Sink persists notices as notifications and records a
// notification.created event in the same unit of work.
type Sink struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

type Created struct {
	NotificationID string                  `json:"notification_id"`
	RecipientID    string                  `json:"recipient_id"`
	Kind           domainnotification.Kind `json:"kind"`
	Title          string                  `json:"title"`
	RefID          string                  `json:"ref_id,omitempty"`
	At             time.Time               `json:"at"`
}

func (e Created) EventName() string     { return "notification.created" }
func (e Created) AggregateID() string   { return e.RecipientID }
func (e Created) OccurredAt() time.Time { return e.At }

func (s *Sink) Notify(ctx context.Context, notice policies.Notice) error {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	n, err := domainnotification.New(domainnotification.CreateParams{
		ID:          domainnotification.NotificationID(uuid.NewString()),
		RecipientID: notice.RecipientID,
		Kind:        notice.Kind,
		Title:       notice.Title,
		Body:        notice.Body,
		RefID:       notice.RefID,
		Now:         now,
	})
	if err != nil {
		return err
	}
	unit, execCtx, release, err := uow.Begin(ctx, s.UoWFactory, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer release()
	if err := unit.Notifications().Save(execCtx, n); err != nil {
		return err
	}
	created := Created{
		NotificationID: string(n.ID),
		RecipientID:    n.RecipientID,
		Kind:           n.Kind,
		Title:          n.Title,
		RefID:          n.RefID,
		At:             now,
	}
	if err := outbox.RecordDomainEvents(execCtx, unit.Outbox(), s.Encoder, []events.DomainEvent{created}); err != nil {
		return err
	}
	return unit.Commit(execCtx)
}

var _ policies.Notifier = (*Sink)(nil)
