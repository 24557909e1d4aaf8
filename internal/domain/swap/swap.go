package swap

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"skillswap/internal/domain/listings"
	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/domain/shared/events"
)

var (
	ErrSelfSwap          = fmt.Errorf("%w: swap: cannot propose a swap to yourself", errs.ErrValidation)
	ErrOfferedNotOwned   = fmt.Errorf("%w: swap: offered listing must belong to the requester", errs.ErrValidation)
	ErrRequestedNotOwned = fmt.Errorf("%w: swap: requested listing must belong to the receiver", errs.ErrValidation)
	ErrListingInactive   = fmt.Errorf("%w: swap: listing is no longer active", errs.ErrValidation)
	ErrReceiverInactive  = fmt.Errorf("%w: swap: receiver cannot take part in swaps", errs.ErrValidation)
	ErrDuplicate         = fmt.Errorf("%w: swap: an identical swap request already exists", errs.ErrValidation)
	ErrMessageTooLong    = fmt.Errorf("%w: swap: message must be at most 1000 characters", errs.ErrValidation)
	ErrNotReceiver       = fmt.Errorf("%w: swap: only the receiver may respond", errs.ErrForbidden)
	ErrNotRequester      = fmt.Errorf("%w: swap: only the requester may cancel", errs.ErrForbidden)
	ErrInvalidState      = fmt.Errorf("%w: swap", errs.ErrInvalidState)
	ErrNotFound          = fmt.Errorf("%w: swap", errs.ErrNotFound)
)

type SwapID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus returns "" for an empty filter.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "", StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted:
		return s, nil
	}
	return "", fmt.Errorf("%w: swap: unknown status %q", errs.ErrValidation, raw)
}

// Swap is a proposed exchange of the requester's offered listing for the
// receiver's listing. Listing ownership is checked once, at proposal.
type Swap struct {
	ID                 SwapID
	RequesterID        string
	ReceiverID         string
	OfferedListingID   listings.ListingID
	RequestedListingID listings.ListingID
	OfferedSkill       string
	RequestedSkill     string
	Message            string
	Status             Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
	RespondedAt        *time.Time
	CompletedAt        *time.Time
	Version            int64
	events.EventRecorder
}

// Key identifies a proposal for duplicate prevention.
type Key struct {
	RequesterID        string
	ReceiverID         string
	OfferedListingID   listings.ListingID
	RequestedListingID listings.ListingID
}

type Repository interface {
	ByID(ctx context.Context, id SwapID) (*Swap, error)
	// FindByKey returns ErrNotFound when no swap with that key exists, whatever its status.
	FindByKey(ctx context.Context, key Key) (*Swap, error)
	ListByParticipant(ctx context.Context, params ListParams) ([]*Swap, error)
	// Save inserts new swaps and compare-and-sets existing ones on Version.
	Save(ctx context.Context, swap *Swap) error
	// Delete removes the swap together with its chat, messages and meetings.
	Delete(ctx context.Context, id SwapID) error
}

type Role string

const (
	RoleAny       Role = ""
	RoleRequester Role = "requester"
	RoleReceiver  Role = "receiver"
)

func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAny, RoleRequester, RoleReceiver:
		return r, nil
	}
	return "", fmt.Errorf("%w: swap: role must be requester or receiver", errs.ErrValidation)
}

type ListParams struct {
	UserID string
	Role   Role
	Status Status
}

type ProposeParams struct {
	ID        SwapID
	Requester string
	Receiver  string
	Offered   *listings.Listing
	Requested *listings.Listing
	Message   string
	Now       time.Time
}

// Propose validates ownership and creates a pending swap. Duplicate
// detection needs the store and is done by the caller.
func Propose(params ProposeParams) (*Swap, error) {
	requester := strings.TrimSpace(params.Requester)
	receiver := strings.TrimSpace(params.Receiver)
	if requester == "" || receiver == "" {
		return nil, fmt.Errorf("%w: swap: requester and receiver are required", errs.ErrValidation)
	}
	if requester == receiver {
		return nil, ErrSelfSwap
	}
	if params.Offered == nil || params.Requested == nil {
		return nil, fmt.Errorf("%w: swap: both listings are required", errs.ErrValidation)
	}
	if params.Offered.OwnerID != requester {
		return nil, ErrOfferedNotOwned
	}
	if params.Requested.OwnerID != receiver {
		return nil, ErrRequestedNotOwned
	}
	if !params.Offered.Active || !params.Requested.Active {
		return nil, ErrListingInactive
	}
	message := strings.TrimSpace(params.Message)
	if utf8.RuneCountInString(message) > 1000 {
		return nil, ErrMessageTooLong
	}
	now := params.Now.UTC()
	s := &Swap{
		ID:                 params.ID,
		RequesterID:        requester,
		ReceiverID:         receiver,
		OfferedListingID:   params.Offered.ID,
		RequestedListingID: params.Requested.ID,
		OfferedSkill:       params.Offered.Name,
		RequestedSkill:     params.Requested.Name,
		Message:            message,
		Status:             StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.Record(SwapProposed{
		SwapID:             s.ID,
		RequesterID:        requester,
		ReceiverID:         receiver,
		OfferedListingID:   s.OfferedListingID,
		RequestedListingID: s.RequestedListingID,
		At:                 now,
	})
	return s, nil
}

func (s *Swap) Key() Key {
	return Key{
		RequesterID:        s.RequesterID,
		ReceiverID:         s.ReceiverID,
		OfferedListingID:   s.OfferedListingID,
		RequestedListingID: s.RequestedListingID,
	}
}

// Involves reports whether user is the requester or the receiver.
func (s *Swap) Involves(user string) bool {
	return user != "" && (user == s.RequesterID || user == s.ReceiverID)
}

// Counterpart returns the other side of the swap for a participant.
func (s *Swap) Counterpart(user string) string {
	if user == s.RequesterID {
		return s.ReceiverID
	}
	return s.RequesterID
}

// Accept moves a pending swap to accepted. A repeated accept by the receiver
// is a no-op and reports changed == false.
func (s *Swap) Accept(actor string, now time.Time) (changed bool, err error) {
	if actor != s.ReceiverID {
		return false, ErrNotReceiver
	}
	switch s.Status {
	case StatusPending:
	case StatusAccepted:
		return false, nil
	default:
		return false, s.invalid("accept")
	}
	s.respond(StatusAccepted, now)
	s.Record(SwapAccepted{SwapID: s.ID, RequesterID: s.RequesterID, ReceiverID: s.ReceiverID, At: s.UpdatedAt})
	return true, nil
}

func (s *Swap) Reject(actor string, now time.Time) error {
	if actor != s.ReceiverID {
		return ErrNotReceiver
	}
	if s.Status != StatusPending {
		return s.invalid("reject")
	}
	s.respond(StatusRejected, now)
	s.Record(SwapRejected{SwapID: s.ID, RequesterID: s.RequesterID, ReceiverID: s.ReceiverID, At: s.UpdatedAt})
	return nil
}

func (s *Swap) Cancel(actor string, now time.Time) error {
	if actor != s.RequesterID {
		return ErrNotRequester
	}
	if s.Status != StatusPending {
		return s.invalid("cancel")
	}
	s.respond(StatusCancelled, now)
	s.Record(SwapCancelled{SwapID: s.ID, RequesterID: s.RequesterID, At: s.UpdatedAt})
	return nil
}

// Complete is the system transition accepted -> completed.
func (s *Swap) Complete(now time.Time) error {
	if s.Status != StatusAccepted {
		return s.invalid("complete")
	}
	at := now.UTC()
	s.Status = StatusCompleted
	s.UpdatedAt = at
	s.CompletedAt = &at
	s.Record(SwapCompleted{SwapID: s.ID, RequesterID: s.RequesterID, ReceiverID: s.ReceiverID, At: at})
	return nil
}

func (s *Swap) respond(status Status, now time.Time) {
	at := now.UTC()
	s.Status = status
	s.UpdatedAt = at
	s.RespondedAt = &at
}

func (s *Swap) invalid(action string) error {
	return fmt.Errorf("%w: cannot %s a %s swap", ErrInvalidState, action, s.Status)
}
