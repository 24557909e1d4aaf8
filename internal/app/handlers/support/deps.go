package support

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"skillswap/internal/app/outbox"
	"skillswap/internal/app/uow"
	"skillswap/internal/domain/shared/events"
	domainuser "skillswap/internal/domain/user"
)

// Clock returns the current time. The zero value uses time.Now.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// NewID returns a random entity id.
func NewID() string {
	return uuid.NewString()
}

// NewMessageID returns a k-sortable id for chat messages.
func NewMessageID() string {
	return xid.New().String()
}

// Drainer is any aggregate embedding events.EventRecorder.
type Drainer interface {
	Drain() []events.DomainEvent
}

type pendingEvents []events.DomainEvent

func (p pendingEvents) Drain() []events.DomainEvent { return p }

// Events adapts loose events, such as a chat opening, to a Drainer.
func Events(evs ...events.DomainEvent) Drainer {
	return pendingEvents(evs)
}

// RecordEvents drains the recorders and writes their events into the unit's outbox.
func RecordEvents(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, recorders ...Drainer) error {
	var evs []events.DomainEvent
	for _, r := range recorders {
		evs = append(evs, r.Drain()...)
	}
	return outbox.RecordDomainEvents(ctx, unit.Outbox(), encoder, evs)
}

// Username resolves a display name, falling back to the id when the user is gone.
func Username(ctx context.Context, users domainuser.Repository, id string) (string, error) {
	u, err := users.ByID(ctx, domainuser.ID(id))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return id, nil
		}
		return "", err
	}
	return u.Username, nil
}
