package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/domain/swap"
)

func acceptedSwap() *swap.Swap {
	return &swap.Swap{ID: "swap-1", RequesterID: "alice", ReceiverID: "bob", Status: swap.StatusAccepted}
}

func TestParticipantsAreDerivedFromSwap(t *testing.T) {
	s := acceptedSwap()
	assert.Equal(t, [2]string{"alice", "bob"}, Participants(s))
	assert.True(t, CanAccess(s, "alice"))
	assert.True(t, CanAccess(s, "bob"))
	assert.False(t, CanAccess(s, "carol"))
	assert.False(t, CanAccess(s, ""))
	assert.False(t, CanAccess(nil, "alice"))
}

func TestNewUserMessage(t *testing.T) {
	c := &Chat{ID: "chat-1", SwapID: "swap-1"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))

	msg, err := NewUserMessage(PostParams{ID: "m1", Chat: c, Swap: acceptedSwap(), Sender: "bob", Content: "  hola  ", Now: now})
	require.NoError(t, err)
	assert.Equal(t, "hola", msg.Content)
	assert.Equal(t, KindUser, msg.Kind)
	assert.Equal(t, ChatID("chat-1"), msg.ChatID)
	assert.Equal(t, time.UTC, msg.CreatedAt.Location())

	_, err = NewUserMessage(PostParams{ID: "m2", Chat: c, Swap: acceptedSwap(), Sender: "carol", Content: "hi", Now: now})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = NewUserMessage(PostParams{ID: "m3", Chat: c, Swap: acceptedSwap(), Sender: "bob", Content: "   ", Now: now})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = NewUserMessage(PostParams{ID: "m4", Chat: c, Swap: acceptedSwap(), Sender: "bob", Content: strings.Repeat("a", MaxMessageLength+1), Now: now})
	assert.ErrorIs(t, err, errs.ErrValidation)

	completed := acceptedSwap()
	completed.Status = swap.StatusCompleted
	_, err = NewUserMessage(PostParams{ID: "m5", Chat: c, Swap: completed, Sender: "bob", Content: "late", Now: now})
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestListParamsNormalized(t *testing.T) {
	p := ListParams{AfterSeq: -4, Limit: 0}.Normalized()
	assert.Equal(t, int64(0), p.AfterSeq)
	assert.Equal(t, DefaultPageSize, p.Limit)
	assert.Equal(t, MaxPageSize, ListParams{Limit: 10_000}.Normalized().Limit)
}
