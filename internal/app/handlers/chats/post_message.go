package chats

import (
	"context"
	"fmt"
	"strings"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	"skillswap/internal/app/handlers/support"
	"skillswap/internal/app/uow"
	domainchat "skillswap/internal/domain/chat"
	"skillswap/internal/domain/shared/errs"
)

const postMessageKey = "chats.post_message"

type PostMessageCommand struct {
	ChatID  string
	Sender  string
	Content string
}

func (c PostMessageCommand) Key() string     { return postMessageKey }
func (c PostMessageCommand) ActorID() string { return c.Sender }

func (c PostMessageCommand) Validate() error {
	if strings.TrimSpace(c.ChatID) == "" {
		return fmt.Errorf("%w: chat: id is required", errs.ErrValidation)
	}
	return nil
}

type PostMessageHandler struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
}

func (h *PostMessageHandler) Handle(ctx context.Context, cmd PostMessageCommand) (*dto.ChatMessage, error) {
	unit, ctx, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer unit.Release()

	c, s, err := support.WritableChat(ctx, unit, domainchat.ChatID(cmd.ChatID), cmd.Sender)
	if err != nil {
		return nil, err
	}
	msg, err := domainchat.NewUserMessage(domainchat.PostParams{
		ID:      domainchat.MessageID(support.NewMessageID()),
		Chat:    c,
		Swap:    s,
		Sender:  cmd.Sender,
		Content: cmd.Content,
		Now:     h.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Messages().Append(ctx, msg); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapMessage(msg)
	return &out, nil
}

var _ commands.Handler[PostMessageCommand, *dto.ChatMessage] = (*PostMessageHandler)(nil)
