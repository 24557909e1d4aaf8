package swaps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/middleware"
	"skillswap/internal/app/outbox"
	"skillswap/internal/app/uow"
	domainlistings "skillswap/internal/domain/listings"
	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
	domainuser "skillswap/internal/domain/user"
)

const proposeSwapKey = "swaps.propose"

// ProposeSwapCommand asks the receiver to trade RequestedListingID for
// OfferedListingID. ReceiverID may be empty; the requested listing's owner
// is used then.
type ProposeSwapCommand struct {
	RequesterID        string
	ReceiverID         string
	OfferedListingID   string
	RequestedListingID string
	Message            string
	IdempotencyKeyV    string
}

func (c ProposeSwapCommand) Key() string { return proposeSwapKey }

func (c ProposeSwapCommand) ActorID() string { return c.RequesterID }

func (c ProposeSwapCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ProposeSwapCommand) ResultPrototype() any { return &dto.Swap{} }

func (c ProposeSwapCommand) Validate() error {
	if strings.TrimSpace(c.OfferedListingID) == "" || strings.TrimSpace(c.RequestedListingID) == "" {
		return fmt.Errorf("%w: swap: offered_listing_id and requested_listing_id are required", errs.ErrValidation)
	}
	return nil
}

type ProposeSwapHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *ProposeSwapHandler) Handle(ctx context.Context, cmd ProposeSwapCommand) (*dto.Swap, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	offered, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.OfferedListingID))
	if err != nil {
		return nil, err
	}
	requested, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.RequestedListingID))
	if err != nil {
		return nil, err
	}
	receiverID := strings.TrimSpace(cmd.ReceiverID)
	if receiverID == "" {
		receiverID = requested.OwnerID
	}
	if receiverID != cmd.RequesterID {
		receiver, err := unit.Users().ByID(ctx, domainuser.ID(receiverID))
		if err != nil {
			return nil, err
		}
		if !receiver.Available() {
			return nil, domainswap.ErrReceiverInactive
		}
	}

	s, err := domainswap.Propose(domainswap.ProposeParams{
		ID:        domainswap.SwapID(support.NewID()),
		Requester: cmd.RequesterID,
		Receiver:  receiverID,
		Offered:   offered,
		Requested: requested,
		Message:   cmd.Message,
		Now:       h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	existing, err := unit.Swaps().FindByKey(ctx, s.Key())
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w (status %s)", domainswap.ErrDuplicate, existing.Status)
	case !errors.Is(err, domainswap.ErrNotFound):
		return nil, err
	}
	if err := unit.Swaps().Save(ctx, s); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, s); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("swap proposed", "swap_id", s.ID, "requester_id", s.RequesterID, "receiver_id", s.ReceiverID)
	}
	out := dto.MapSwap(s)
	return &out, nil
}

var _ commands.Handler[ProposeSwapCommand, *dto.Swap] = (*ProposeSwapHandler)(nil)
var _ middleware.IdempotentCommand = ProposeSwapCommand{}
