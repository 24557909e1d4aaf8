package dto

import (
	"time"

	domainchat "skillswap/internal/domain/chat"
)

// Conversation describes a chat from the point of view of one participant.
type Conversation struct {
	ID              string       `json:"id"`
	SwapID          string       `json:"swap_id"`
	CounterpartID   string       `json:"counterpart_id"`
	CounterpartName string       `json:"counterpart_username,omitempty"`
	OfferedSkill    string       `json:"offered_skill"`
	RequestedSkill  string       `json:"requested_skill"`
	SwapStatus      string       `json:"swap_status"`
	CreatedAt       time.Time    `json:"created_at"`
	LastMessage     *ChatMessage `json:"last_message,omitempty"`
	MessageCount    int          `json:"message_count"`
}

type ConversationList struct {
	Items []Conversation `json:"items"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Seq       int64     `json:"seq"`
}

// ChatMessageList is ascending; NextAfter feeds the next ?after= request.
type ChatMessageList struct {
	Items     []ChatMessage `json:"items"`
	NextAfter int64         `json:"next_after,omitempty"`
}

func MapMessage(m *domainchat.Message) ChatMessage {
	return ChatMessage{
		ID:        string(m.ID),
		ChatID:    string(m.ChatID),
		SenderID:  m.SenderID,
		Kind:      string(m.Kind),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Seq:       m.Seq,
	}
}
