package swap

import (
	"time"

	"skillswap/internal/domain/listings"
)

type SwapProposed struct {
	SwapID             SwapID
	RequesterID        string
	ReceiverID         string
	OfferedListingID   listings.ListingID
	RequestedListingID listings.ListingID
	At                 time.Time
}

func (e SwapProposed) EventName() string     { return "swap.proposed" }
func (e SwapProposed) AggregateID() string   { return string(e.SwapID) }
func (e SwapProposed) OccurredAt() time.Time { return e.At }

type SwapAccepted struct {
	SwapID      SwapID
	RequesterID string
	ReceiverID  string
	At          time.Time
}

func (e SwapAccepted) EventName() string     { return "swap.accepted" }
func (e SwapAccepted) AggregateID() string   { return string(e.SwapID) }
func (e SwapAccepted) OccurredAt() time.Time { return e.At }

type SwapRejected struct {
	SwapID      SwapID
	RequesterID string
	ReceiverID  string
	At          time.Time
}

func (e SwapRejected) EventName() string     { return "swap.rejected" }
func (e SwapRejected) AggregateID() string   { return string(e.SwapID) }
func (e SwapRejected) OccurredAt() time.Time { return e.At }

type SwapCancelled struct {
	SwapID      SwapID
	RequesterID string
	At          time.Time
}

func (e SwapCancelled) EventName() string     { return "swap.cancelled" }
func (e SwapCancelled) AggregateID() string   { return string(e.SwapID) }
func (e SwapCancelled) OccurredAt() time.Time { return e.At }

type SwapCompleted struct {
	SwapID      SwapID
	RequesterID string
	ReceiverID  string
	At          time.Time
}

func (e SwapCompleted) EventName() string     { return "swap.completed" }
func (e SwapCompleted) AggregateID() string   { return string(e.SwapID) }
func (e SwapCompleted) OccurredAt() time.Time { return e.At }
