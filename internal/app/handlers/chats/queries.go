package chats

import (
	"context"
	"errors"

	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/queries"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	domainswap "skillswap/internal/domain/swap"
)

const (
	listMyChatsKey  = "chats.list_mine"
	getChatKey      = "chats.get"
	listMessagesKey = "chats.list_messages"
)

type ListMyChatsQuery struct {
	Actor string
}

func (q ListMyChatsQuery) Key() string     { return listMyChatsKey }
func (q ListMyChatsQuery) ActorID() string { return q.Actor }

// ListMyChatsHandler returns the chats of the actor's accepted swaps with a
// preview of the latest message.
type ListMyChatsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMyChatsHandler) Handle(ctx context.Context, q ListMyChatsQuery) (dto.ConversationList, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ConversationList{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	chats, err := unit.Chats().ListAccepted(ctx, q.Actor)
	if err != nil {
		return dto.ConversationList{}, err
	}
	out := dto.ConversationList{Items: make([]dto.Conversation, 0, len(chats))}
	for _, c := range chats {
		s, err := unit.Swaps().ByID(ctx, c.SwapID)
		if err != nil {
			return dto.ConversationList{}, err
		}
		if s.Status != domainswap.StatusAccepted || !domainchat.CanAccess(s, q.Actor) {
			continue
		}
		item, err := conversation(ctx, unit, c, s, q.Actor)
		if err != nil {
			return dto.ConversationList{}, err
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

type GetChatQuery struct {
	ChatID string
	Actor  string
}

func (q GetChatQuery) Key() string     { return getChatKey }
func (q GetChatQuery) ActorID() string { return q.Actor }

type GetChatHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetChatHandler) Handle(ctx context.Context, q GetChatQuery) (dto.Conversation, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Conversation{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	c, s, err := support.ReadableChat(ctx, unit, domainchat.ChatID(q.ChatID), q.Actor)
	if err != nil {
		return dto.Conversation{}, err
	}
	return conversation(ctx, unit, c, s, q.Actor)
}

// ListMessagesQuery pages forward through a chat. AfterSeq is exclusive.
type ListMessagesQuery struct {
	ChatID   string
	Actor    string
	AfterSeq int64
	Limit    int
}

func (q ListMessagesQuery) Key() string     { return listMessagesKey }
func (q ListMessagesQuery) ActorID() string { return q.Actor }

type ListMessagesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMessagesHandler) Handle(ctx context.Context, q ListMessagesQuery) (dto.ChatMessageList, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ChatMessageList{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	c, _, err := support.ReadableChat(ctx, unit, domainchat.ChatID(q.ChatID), q.Actor)
	if err != nil {
		return dto.ChatMessageList{}, err
	}
	params := domainchat.ListParams{AfterSeq: q.AfterSeq, Limit: q.Limit}.Normalized()
	msgs, err := unit.Messages().List(ctx, c.ID, params)
	if err != nil {
		return dto.ChatMessageList{}, err
	}
	out := dto.ChatMessageList{Items: make([]dto.ChatMessage, 0, len(msgs))}
	for _, m := range msgs {
		out.Items = append(out.Items, dto.MapMessage(m))
	}
	if len(msgs) == params.Limit {
		out.NextAfter = msgs[len(msgs)-1].Seq
	}
	return out, nil
}

func conversation(ctx context.Context, unit uow.UnitOfWork, c *domainchat.Chat, s *domainswap.Swap, actor string) (dto.Conversation, error) {
	counterpart := s.Counterpart(actor)
	name, err := support.Username(ctx, unit.Users(), counterpart)
	if err != nil {
		return dto.Conversation{}, err
	}
	item := dto.Conversation{
		ID:              string(c.ID),
		SwapID:          string(s.ID),
		CounterpartID:   counterpart,
		CounterpartName: name,
		OfferedSkill:    s.OfferedSkill,
		RequestedSkill:  s.RequestedSkill,
		SwapStatus:      string(s.Status),
		CreatedAt:       c.CreatedAt,
	}
	latest, err := unit.Messages().Latest(ctx, c.ID)
	switch {
	case err == nil:
		preview := dto.MapMessage(latest)
		item.LastMessage = &preview
	case !errors.Is(err, domainchat.ErrNoMessages):
		return dto.Conversation{}, err
	}
	count, err := unit.Messages().Count(ctx, c.ID)
	if err != nil {
		return dto.Conversation{}, err
	}
	item.MessageCount = count
	return item, nil
}

var _ queries.Handler[ListMyChatsQuery, dto.ConversationList] = (*ListMyChatsHandler)(nil)
var _ queries.Handler[GetChatQuery, dto.Conversation] = (*GetChatHandler)(nil)
var _ queries.Handler[ListMessagesQuery, dto.ChatMessageList] = (*ListMessagesHandler)(nil)
