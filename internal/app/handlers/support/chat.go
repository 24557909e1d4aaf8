package support

import (
	"context"

	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainswap "skillswap/internal/domain/swap"
)

// ChatAccess loads a chat with its owning swap.
func ChatAccess(ctx context.Context, unit uow.UnitOfWork, id domainchat.ChatID) (*domainchat.Chat, *domainswap.Swap, error) {
	c, err := unit.Chats().ByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s, err := unit.Swaps().ByID(ctx, c.SwapID)
	if err != nil {
		return nil, nil, err
	}
	return c, s, nil
}

// ReadableChat hides the chat from non-participants behind NotFound.
func ReadableChat(ctx context.Context, unit uow.UnitOfWork, id domainchat.ChatID, actor string) (*domainchat.Chat, *domainswap.Swap, error) {
	c, s, err := ChatAccess(ctx, unit, id)
	if err != nil {
		return nil, nil, err
	}
	if !domainchat.CanAccess(s, actor) {
		return nil, nil, domainchat.ErrNotFound
	}
	return c, s, nil
}

// WritableChat reports non-participants as forbidden.
func WritableChat(ctx context.Context, unit uow.UnitOfWork, id domainchat.ChatID, actor string) (*domainchat.Chat, *domainswap.Swap, error) {
	c, s, err := ChatAccess(ctx, unit, id)
	if err != nil {
		return nil, nil, err
	}
	if !domainchat.CanAccess(s, actor) {
		return nil, nil, domainchat.ErrNotParticipant
	}
	return c, s, nil
}
