package listings

import "time"

type ListingCreatedEvent struct {
	ListingID ListingID
	OwnerID   string
	Name      string
	Direction Direction
	At        time.Time
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingRemovedEvent struct {
	ListingID ListingID
	OwnerID   string
	At        time.Time
}

func (e ListingRemovedEvent) EventName() string     { return "listing.removed" }
func (e ListingRemovedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingRemovedEvent) OccurredAt() time.Time { return e.At }
