package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	swapapp "skillswap/internal/app/handlers/swaps"
	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/infra/storage/memory"
)

type recordingBus struct {
	calls []swapapp.CompleteSwapCommand
	errs  []error
}

func (b *recordingBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	complete, ok := cmd.(swapapp.CompleteSwapCommand)
	if !ok {
		return nil, fmt.Errorf("unexpected command %T", cmd)
	}
	b.calls = append(b.calls, complete)
	if n := len(b.calls); n <= len(b.errs) && b.errs[n-1] != nil {
		return nil, b.errs[n-1]
	}
	return &dto.Swap{ID: complete.SwapID, Status: "completed"}, nil
}

func message(offset int64, body string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: SwapCommandsTopic, Partition: 0, Offset: offset, Value: []byte(body)}
}

func TestSwapCommandHandlerDispatchesCompleteOnce(t *testing.T) {
	bus := &recordingBus{}
	h := &SwapCommandHandler{Commands: bus, Inbox: memory.NewInbox("test")}

	body := `{"id":"cmd-1","type":"complete","swap_id":"s-1"}`
	require.NoError(t, h.Handle(context.Background(), message(1, body)))
	require.NoError(t, h.Handle(context.Background(), message(2, body)))

	require.Len(t, bus.calls, 1)
	assert.Equal(t, "s-1", bus.calls[0].SwapID)
	assert.Equal(t, "kafka", bus.calls[0].Source)
}

func TestSwapCommandHandlerAcknowledgesRejectedCommands(t *testing.T) {
	bus := &recordingBus{errs: []error{fmt.Errorf("%w: cannot complete a pending swap", errs.ErrInvalidState)}}
	h := &SwapCommandHandler{Commands: bus}

	assert.NoError(t, h.Handle(context.Background(), message(1, `{"type":"complete","swap_id":"s-1"}`)))
	assert.NoError(t, h.Handle(context.Background(), message(2, `{"type":"archive","swap_id":"s-1"}`)))
	assert.NoError(t, h.Handle(context.Background(), message(3, `not json`)))
	assert.Len(t, bus.calls, 1)
}

func TestSwapCommandHandlerRetriesTransientErrors(t *testing.T) {
	boom := errors.New("store unavailable")
	bus := &recordingBus{errs: []error{boom, boom}}
	h := &SwapCommandHandler{Commands: bus, Attempts: 3}

	require.NoError(t, h.Handle(context.Background(), message(1, `{"type":"complete","swap_id":"s-1"}`)))
	assert.Len(t, bus.calls, 3)

	bus = &recordingBus{errs: []error{boom, boom, boom}}
	h = &SwapCommandHandler{Commands: bus, Attempts: 3}
	assert.ErrorIs(t, h.Handle(context.Background(), message(2, `{"type":"complete","swap_id":"s-1"}`)), boom)
}

func TestSwapCommandHandlerRedeliveryAfterTransientFailure(t *testing.T) {
	boom := errors.New("store unavailable")
	bus := &recordingBus{errs: []error{boom, boom, boom}}
	h := &SwapCommandHandler{Commands: bus, Inbox: memory.NewInbox("test"), Attempts: 3}
	msg := message(7, `{"id":"cmd-7","type":"complete","swap_id":"s-1"}`)

	require.ErrorIs(t, h.Handle(context.Background(), msg), boom)
	require.Len(t, bus.calls, 3)

	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Len(t, bus.calls, 4)

	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Len(t, bus.calls, 4)
}

func TestMessageIDFallsBackToOffset(t *testing.T) {
	msg := message(42, `{}`)
	assert.Equal(t, SwapCommandsTopic+"/0/42", messageID(msg, SwapCommand{}))
	msg.Headers = []*sarama.RecordHeader{{Key: []byte("ce_id"), Value: []byte("evt-9")}}
	assert.Equal(t, "evt-9", messageID(msg, SwapCommand{}))
	assert.Equal(t, "explicit", messageID(msg, SwapCommand{ID: "explicit"}))
}
