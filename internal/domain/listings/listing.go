package listings

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/domain/shared/events"
)

var (
	ErrNameRequired     = fmt.Errorf("%w: listings: skill name is required", errs.ErrValidation)
	ErrNameTooLong      = fmt.Errorf("%w: listings: skill name must be at most 100 characters", errs.ErrValidation)
	ErrInvalidDirection = fmt.Errorf("%w: listings: direction must be offered or requested", errs.ErrValidation)
	ErrDuplicate        = fmt.Errorf("%w: listings: skill already listed in this direction", errs.ErrValidation)
	ErrOwnerRequired    = fmt.Errorf("%w: listings: owner is required", errs.ErrValidation)
	ErrNotOwner         = fmt.Errorf("%w: listings: listing belongs to another user", errs.ErrForbidden)
	ErrNotFound         = fmt.Errorf("%w: listings: listing", errs.ErrNotFound)
)

type ListingID string

type Direction string

const (
	Offered   Direction = "offered"
	Requested Direction = "requested"
)

// ParseDirection accepts the canonical values plus the "offer"/"request" aliases.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "offered", "offer":
		return Offered, nil
	case "requested", "request", "wanted":
		return Requested, nil
	default:
		return "", ErrInvalidDirection
	}
}

// Listing declares one skill a user offers or wants.
type Listing struct {
	ID          ListingID
	OwnerID     string
	Name        string
	Direction   Direction
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	// FindByOwnerName matches the skill name case-insensitively.
	FindByOwnerName(ctx context.Context, ownerID, name string, direction Direction) (*Listing, error)
	Search(ctx context.Context, params SearchParams) ([]*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
}

// SearchParams filters listings. Empty fields do not filter.
type SearchParams struct {
	OwnerID    string
	Direction  Direction
	NameLike   string
	OnlyActive bool
	Limit      int
}

const defaultSearchLimit = 100

func (p SearchParams) Normalized() SearchParams {
	p.OwnerID = strings.TrimSpace(p.OwnerID)
	p.NameLike = strings.ToLower(strings.TrimSpace(p.NameLike))
	if p.Limit <= 0 || p.Limit > defaultSearchLimit {
		p.Limit = defaultSearchLimit
	}
	return p
}

type CreateParams struct {
	ID          ListingID
	OwnerID     string
	Name        string
	Direction   Direction
	Description string
	Now         time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	owner := strings.TrimSpace(params.OwnerID)
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(name) > 100 {
		return nil, ErrNameTooLong
	}
	if params.Direction != Offered && params.Direction != Requested {
		return nil, ErrInvalidDirection
	}
	now := params.Now.UTC()
	l := &Listing{
		ID:          params.ID,
		OwnerID:     owner,
		Name:        name,
		Direction:   params.Direction,
		Description: strings.TrimSpace(params.Description),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.Record(ListingCreatedEvent{ListingID: l.ID, OwnerID: owner, Name: name, Direction: l.Direction, At: now})
	return l, nil
}

// Remove checks ownership and records the removal. Swaps that reference the
// listing keep their own snapshot of it.
func (l *Listing) Remove(actor string, now time.Time) error {
	if l.OwnerID != actor {
		return ErrNotOwner
	}
	l.Active = false
	l.UpdatedAt = now.UTC()
	l.Record(ListingRemovedEvent{ListingID: l.ID, OwnerID: l.OwnerID, At: l.UpdatedAt})
	return nil
}

// SameName compares skill names the way the uniqueness rule does.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
