package swaps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/middleware"
	"skillswap/internal/app/outbox"
	"skillswap/internal/app/policies"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainnotification "skillswap/internal/domain/notification"
	"skillswap/internal/domain/shared/errs"
	domainswap "skillswap/internal/domain/swap"
)

const (
	acceptSwapKey = "swaps.accept"
	rejectSwapKey = "swaps.reject"
	cancelSwapKey = "swaps.cancel"
)

func requireSwapID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: swap: id is required", errs.ErrValidation)
	}
	return nil
}

type AcceptSwapCommand struct {
	SwapID          string
	Actor           string
	IdempotencyKeyV string
}

func (c AcceptSwapCommand) Key() string            { return acceptSwapKey }
func (c AcceptSwapCommand) ActorID() string        { return c.Actor }
func (c AcceptSwapCommand) Validate() error        { return requireSwapID(c.SwapID) }
func (c AcceptSwapCommand) IdempotencyKey() string { return c.IdempotencyKeyV }
func (c AcceptSwapCommand) ResultPrototype() any   { return &AcceptSwapResult{} }

type AcceptSwapResult struct {
	Swap        dto.Swap `json:"swap"`
	ChatID      string   `json:"chat_id"`
	ChatCreated bool     `json:"chat_created"`
}

// AcceptSwapHandler accepts a pending swap and opens its chat in the same
// unit of work. Accepting an already accepted swap returns the existing chat.
type AcceptSwapHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
	Logger     *slog.Logger
}

func (h *AcceptSwapHandler) Handle(ctx context.Context, cmd AcceptSwapCommand) (*AcceptSwapResult, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	s, err := unit.Swaps().ByID(ctx, domainswap.SwapID(cmd.SwapID))
	if err != nil {
		return nil, err
	}
	now := h.Clock.Now()
	changed, err := s.Accept(cmd.Actor, now)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := unit.Swaps().Save(ctx, s); err != nil {
			return nil, err
		}
	}
	c, created, err := unit.Chats().GetOrCreate(ctx, &domainchat.Chat{
		ID:        domainchat.ChatID(support.NewID()),
		SwapID:    s.ID,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	recorders := []support.Drainer{s}
	if created {
		recorders = append(recorders, support.Events(domainchat.ChatOpened{ChatID: c.ID, SwapID: c.SwapID, At: c.CreatedAt}))
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, recorders...); err != nil {
		return nil, err
	}
	if changed {
		name, err := support.Username(ctx, unit.Users(), cmd.Actor)
		if err != nil {
			return nil, err
		}
		policies.Defer(ctx, policies.Notice{
			RecipientID: s.RequesterID,
			Kind:        domainnotification.KindSwapAccepted,
			Title:       "Swap Request Accepted",
			Body:        fmt.Sprintf("%s accepted your swap request", name),
			RefID:       string(s.ID),
		})
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	if h.Logger != nil && changed {
		h.Logger.Info("swap accepted", "swap_id", s.ID, "chat_id", c.ID)
	}
	return &AcceptSwapResult{Swap: dto.MapSwap(s), ChatID: string(c.ID), ChatCreated: created}, nil
}

type RejectSwapCommand struct {
	SwapID string
	Actor  string
}

func (c RejectSwapCommand) Key() string     { return rejectSwapKey }
func (c RejectSwapCommand) ActorID() string { return c.Actor }
func (c RejectSwapCommand) Validate() error { return requireSwapID(c.SwapID) }

type RejectSwapHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
}

func (h *RejectSwapHandler) Handle(ctx context.Context, cmd RejectSwapCommand) (*dto.Swap, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	s, err := unit.Swaps().ByID(ctx, domainswap.SwapID(cmd.SwapID))
	if err != nil {
		return nil, err
	}
	if err := s.Reject(cmd.Actor, h.Clock.Now()); err != nil {
		return nil, err
	}
	if err := unit.Swaps().Save(ctx, s); err != nil {
		return nil, err
	}
	if err := support.RecordEvents(ctx, unit, h.Encoder, s); err != nil {
		return nil, err
	}
	name, err := support.Username(ctx, unit.Users(), cmd.Actor)
	if err != nil {
		return nil, err
	}
	policies.Defer(ctx, policies.Notice{
		RecipientID: s.RequesterID,
		Kind:        domainnotification.KindSwapRejected,
		Title:       "Swap Request Rejected",
		Body:        fmt.Sprintf("%s rejected your swap request", name),
		RefID:       string(s.ID),
	})
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapSwap(s)
	return &out, nil
}

type CancelSwapCommand struct {
	SwapID string
	Actor  string
}

func (c CancelSwapCommand) Key() string     { return cancelSwapKey }
func (c CancelSwapCommand) ActorID() string { return c.Actor }
func (c CancelSwapCommand) Validate() error { return requireSwapID(c.SwapID) }

type CancelSwapHandler struct {
	UoWFactory uow.UoWFactory
	Encoder    outbox.EventEncoder
	Clock      support.Clock
}

// Handle cancels a pending swap. The receiver is not notified.
func (h *CancelSwapHandler) Handle(ctx context.Context, cmd CancelSwapCommand) (*dto.Swap, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	s, err := unit.Swaps().ByID(ctx, domainswap.SwapID(cmd.SwapID))
	if err != nil {
		return nil, err
	}
	if err := s.Cancel(cmd.Actor, h.Clock.Now()); err != nil {
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
	out := dto.MapSwap(s)
	return &out, nil
}

var _ middleware.IdempotentCommand = AcceptSwapCommand{}
var _ commands.Handler[AcceptSwapCommand, *AcceptSwapResult] = (*AcceptSwapHandler)(nil)
var _ commands.Handler[RejectSwapCommand, *dto.Swap] = (*RejectSwapHandler)(nil)
var _ commands.Handler[CancelSwapCommand, *dto.Swap] = (*CancelSwapHandler)(nil)
