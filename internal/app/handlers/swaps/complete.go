package swaps

import (
	"context"
	"fmt"
	"log/slog"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/outbox"
	"skillswap/internal/app/policies"
	"skillswap/internal/app/uow"
	domainnotification "skillswap/internal/domain/notification"
	domainswap "skillswap/internal/domain/swap"
)

const (
	completeSwapKey = "swaps.complete"
	purgeSwapKey    = "swaps.purge"
)

// CompleteSwapCommand is issued by an admin or by an integration over Kafka.
// Source is recorded in logs only.
type CompleteSwapCommand struct {
	SwapID string
	Source string
}

func (c CompleteSwapCommand) Key() string         { return completeSwapKey }
func (c CompleteSwapCommand) SystemTrigger() bool { return true }
func (c CompleteSwapCommand) Validate() error     { return requireSwapID(c.SwapID) }

type CompleteSwapHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *CompleteSwapHandler) Handle(ctx context.Context, cmd CompleteSwapCommand) (*dto.Swap, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	s, err := unit.Swaps().ByID(ctx, domainswap.SwapID(cmd.SwapID))
	if err != nil {
		return nil, err
	}
	if err := s.Complete(h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Swaps().Save(ctx, s); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, s); err != nil {
		return nil, err
	}
	body := fmt.Sprintf("Your swap of %s for %s is complete", s.OfferedSkill, s.RequestedSkill)
	for _, recipient := range []string{s.RequesterID, s.ReceiverID} {
		policies.Defer(ctx, policies.Notice{
			RecipientID: recipient,
			Kind:        domainnotification.KindSwapCompleted,
			Title:       "Swap Completed",
			Body:        body,
			RefID:       string(s.ID),
		})
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("swap completed", "swap_id", s.ID, "source", cmd.Source)
	}
	out := dto.MapSwap(s)
	return &out, nil
}

type PurgeSwapCommand struct {
	SwapID string
	Actor  string
}

func (c PurgeSwapCommand) Key() string     { return purgeSwapKey }
func (c PurgeSwapCommand) ActorID() string { return c.Actor }
func (c PurgeSwapCommand) Validate() error { return requireSwapID(c.SwapID) }

// PurgeSwapHandler hard-deletes a swap with its chat, messages and meetings.
// Callers must have checked the admin role.
type PurgeSwapHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *PurgeSwapHandler) Handle(ctx context.Context, cmd PurgeSwapCommand) (struct{}, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return struct{}{}, err
	}
	defer unit.Release()

	id := domainswap.SwapID(cmd.SwapID)
	if _, err := unit.Swaps().ByID(ctx, id); err != nil {
		return struct{}{}, err
	}
	if err := unit.Swaps().Delete(ctx, id); err != nil {
		return struct{}{}, err
	}
	if err := unit.Commit(ctx); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Warn("swap purged", "swap_id", id, "actor_id", cmd.Actor)
	}
	return struct{}{}, nil
}

var _ commands.Handler[CompleteSwapCommand, *dto.Swap] = (*CompleteSwapHandler)(nil)
var _ commands.Handler[PurgeSwapCommand, struct{}] = (*PurgeSwapHandler)(nil)
