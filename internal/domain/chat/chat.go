package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/domain/shared/events"
	"skillswap/internal/domain/swap"
)

var (
	ErrNotFound       = fmt.Errorf("%w: chat", errs.ErrNotFound)
	ErrNotParticipant = fmt.Errorf("%w: chat: not a participant", errs.ErrForbidden)
	ErrSwapNotActive  = fmt.Errorf("%w: chat: swap is not accepted", errs.ErrInvalidState)
	ErrEmptyMessage   = fmt.Errorf("%w: chat: message content is required", errs.ErrValidation)
	ErrMessageTooLong = fmt.Errorf("%w: chat: message must be at most %d characters", errs.ErrValidation, MaxMessageLength)
)

const MaxMessageLength = 4000

type ChatID string

// Chat belongs to exactly one swap. Its members are never stored; see Participants.
type Chat struct {
	ID        ChatID
	SwapID    swap.SwapID
	CreatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ChatID) (*Chat, error)
	BySwap(ctx context.Context, swapID swap.SwapID) (*Chat, error)
	// GetOrCreate returns the chat of candidate.SwapID, inserting candidate
	// when none exists. created reports which case happened.
	GetOrCreate(ctx context.Context, candidate *Chat) (chat *Chat, created bool, err error)
	// ListAccepted returns chats of accepted swaps the user takes part in, newest first.
	ListAccepted(ctx context.Context, userID string) ([]*Chat, error)
}

// Participants derives the chat members from the owning swap.
func Participants(s *swap.Swap) [2]string {
	return [2]string{s.RequesterID, s.ReceiverID}
}

// CanAccess reports whether user is one of the derived participants.
func CanAccess(s *swap.Swap, user string) bool {
	if s == nil || user == "" {
		return false
	}
	for _, p := range Participants(s) {
		if p == user {
			return true
		}
	}
	return false
}

type MessageID string

type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

// Message is append-only. Seq is assigned by the store and orders messages
// that share a timestamp.
type Message struct {
	ID        MessageID
	ChatID    ChatID
	SenderID  string
	Kind      MessageKind
	Content   string
	CreatedAt time.Time
	Seq       int64
}

type MessageRepository interface {
	Append(ctx context.Context, msg *Message) error
	// List returns messages oldest first.
	List(ctx context.Context, chatID ChatID, params ListParams) ([]*Message, error)
	// Latest returns the most recent message or ErrNoMessages.
	Latest(ctx context.Context, chatID ChatID) (*Message, error)
	Count(ctx context.Context, chatID ChatID) (int, error)
}

var ErrNoMessages = fmt.Errorf("%w: chat: no messages", errs.ErrNotFound)

type ListParams struct {
	AfterSeq int64
	Limit    int
}

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

func (p ListParams) Normalized() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.AfterSeq < 0 {
		p.AfterSeq = 0
	}
	return p
}

type PostParams struct {
	ID      MessageID
	Chat    *Chat
	Swap    *swap.Swap
	Sender  string
	Content string
	Now     time.Time
}

// NewUserMessage checks membership, swap status and content for a message
// posted by a participant.
func NewUserMessage(params PostParams) (*Message, error) {
	if !CanAccess(params.Swap, params.Sender) {
		return nil, ErrNotParticipant
	}
	if params.Swap.Status != swap.StatusAccepted {
		return nil, ErrSwapNotActive
	}
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	return &Message{
		ID:        params.ID,
		ChatID:    params.Chat.ID,
		SenderID:  params.Sender,
		Kind:      KindUser,
		Content:   content,
		CreatedAt: params.Now.UTC(),
	}, nil
}

// NewSystemMessage builds an announcement attributed to actor.
func NewSystemMessage(id MessageID, chatID ChatID, actor, content string, now time.Time) *Message {
	return &Message{
		ID:        id,
		ChatID:    chatID,
		SenderID:  actor,
		Kind:      KindSystem,
		Content:   content,
		CreatedAt: now.UTC(),
	}
}

type ChatOpened struct {
	ChatID ChatID
	SwapID swap.SwapID
	At     time.Time
}

func (e ChatOpened) EventName() string     { return "chat.opened" }
func (e ChatOpened) AggregateID() string   { return string(e.ChatID) }
func (e ChatOpened) OccurredAt() time.Time { return e.At }

var _ events.DomainEvent = ChatOpened{}
