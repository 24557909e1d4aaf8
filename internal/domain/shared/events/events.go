package events

import (
	"slices"
	"time"
)

// DomainEvent is a fact recorded by an aggregate and relayed through the
// outbox. EventName is "<aggregate>.<verb>", e.g. "swap.accepted".
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates. Events stay buffered until the
// handler that saved the aggregate drains them into the outbox.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event != nil {
		r.pending = append(r.pending, event)
	}
}

func (r *EventRecorder) PendingEvents() []DomainEvent { return slices.Clone(r.pending) }

func (r *EventRecorder) ClearEvents() { r.pending = nil }

func (r *EventRecorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}
