package listings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/outbox"
	"skillswap/internal/app/uow"
	domainlistings "skillswap/internal/domain/listings"
	"skillswap/internal/domain/shared/errs"
	domainuser "skillswap/internal/domain/user"
)

const (
	createListingKey = "listings.create"
	deleteListingKey = "listings.delete"
)

type CreateListingCommand struct {
	OwnerID     string
	Name        string
	Direction   string
	Description string
}

func (c CreateListingCommand) Key() string     { return createListingKey }
func (c CreateListingCommand) ActorID() string { return c.OwnerID }

func (c CreateListingCommand) Validate() error {
	_, err := domainlistings.ParseDirection(c.Direction)
	return err
}

type CreateListingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	direction, err := domainlistings.ParseDirection(cmd.Direction)
	if err != nil {
		return nil, err
	}
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	owner, err := unit.Users().ByID(ctx, domainuser.ID(cmd.OwnerID))
	if err != nil {
		return nil, err
	}
	if !owner.Available() {
		return nil, fmt.Errorf("%w: listings: account cannot publish listings", errs.ErrForbidden)
	}
	_, err = unit.Listings().FindByOwnerName(ctx, cmd.OwnerID, cmd.Name, direction)
	switch {
	case err == nil:
		return nil, domainlistings.ErrDuplicate
	case !errors.Is(err, domainlistings.ErrNotFound):
		return nil, err
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:          domainlistings.ListingID(support.NewID()),
		OwnerID:     cmd.OwnerID,
		Name:        cmd.Name,
		Direction:   direction,
		Description: cmd.Description,
		Now:         h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, listing); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "owner_id", listing.OwnerID, "direction", listing.Direction)
	}
	out := dto.MapListing(listing, owner.Username)
	return &out, nil
}

type DeleteListingCommand struct {
	ListingID string
	OwnerID   string
}

func (c DeleteListingCommand) Key() string     { return deleteListingKey }
func (c DeleteListingCommand) ActorID() string { return c.OwnerID }

func (c DeleteListingCommand) Validate() error {
	if strings.TrimSpace(c.ListingID) == "" {
		return fmt.Errorf("%w: listings: id is required", errs.ErrValidation)
	}
	return nil
}

// DeleteListingHandler removes a listing. Swaps referencing it keep their
// listing ids and skill snapshots; chats and meetings are untouched.
type DeleteListingHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (struct{}, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return struct{}{}, err
	}
	defer unit.Release()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return struct{}{}, err
	}
	if err := listing.Remove(cmd.OwnerID, h.Clock.Now()); err != nil {
		return struct{}{}, err
	}
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return struct{}{}, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, listing); err != nil {
		return struct{}{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return struct{}{}, err
	}
	return struct{}{}, nil
}

var _ commands.Handler[CreateListingCommand, *dto.Listing] = (*CreateListingHandler)(nil)
var _ commands.Handler[DeleteListingCommand, struct{}] = (*DeleteListingHandler)(nil)
