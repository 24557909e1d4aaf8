package swaps

import (
	"context"

	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/uow"
	domainswap "skillswap/internal/domain/swap"
)

const (
	getSwapKey     = "swaps.get"
	listMySwapsKey = "swaps.list_mine"
)

type GetSwapQuery struct {
	SwapID string
	Actor  string
}

func (q GetSwapQuery) Key() string     { return getSwapKey }
func (q GetSwapQuery) ActorID() string { return q.Actor }

// GetSwapHandler hides swaps from anyone but their two participants.
type GetSwapHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetSwapHandler) Handle(ctx context.Context, q GetSwapQuery) (dto.Swap, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Swap{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	s, err := unit.Swaps().ByID(ctx, domainswap.SwapID(q.SwapID))
	if err != nil {
		return dto.Swap{}, err
	}
	if !s.Involves(q.Actor) {
		return dto.Swap{}, domainswap.ErrNotFound
	}
	return dto.MapSwap(s), nil
}

// ListMySwapsQuery filters by the actor's side of the swap ("requester",
// "receiver" or empty for both) and by status.
type ListMySwapsQuery struct {
	Actor  string
	Role   string
	Status string
}

func (q ListMySwapsQuery) Key() string     { return listMySwapsKey }
func (q ListMySwapsQuery) ActorID() string { return q.Actor }

func (q ListMySwapsQuery) Validate() error {
	if _, err := domainswap.ParseStatus(q.Status); err != nil {
		return err
	}
	_, err := domainswap.ParseRole(q.Role)
	return err
}

type ListMySwapsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMySwapsHandler) Handle(ctx context.Context, q ListMySwapsQuery) (dto.SwapCollection, error) {
	status, err := domainswap.ParseStatus(q.Status)
	if err != nil {
		return dto.SwapCollection{}, err
	}
	role, err := domainswap.ParseRole(q.Role)
	if err != nil {
		return dto.SwapCollection{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SwapCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Swaps().ListByParticipant(ctx, domainswap.ListParams{UserID: q.Actor, Role: role, Status: status})
	if err != nil {
		return dto.SwapCollection{}, err
	}
	out := dto.SwapCollection{Items: make([]dto.Swap, 0, len(list))}
	for _, s := range list {
		out.Items = append(out.Items, dto.MapSwap(s))
	}
	return out, nil
}

var _ queries.Handler[GetSwapQuery, dto.Swap] = (*GetSwapHandler)(nil)
var _ queries.Handler[ListMySwapsQuery, dto.SwapCollection] = (*ListMySwapsHandler)(nil)
