package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/dto"
	swapapp "skillswap/internal/app/handlers/swaps"
	"skillswap/internal/domain/shared/errs"
)

// SwapCommandsTopic carries lifecycle commands issued by other systems.
const SwapCommandsTopic = "swap.commands.v1"

// Inbox deduplicates consumed messages per consumer. Seen claims an id;
// Forget releases the claim so a redelivery is processed again.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// SwapCommand is the JSON body of a swap.commands.v1 message.
type SwapCommand struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	SwapID string `json:"swap_id"`
}

var ErrUnknownCommand = errors.New("kafka: unknown swap command")

// SwapCommandHandler turns swap.commands.v1 messages into bus commands.
// Only "complete" is understood. A message id is claimed in Inbox before
// dispatch and released again when the dispatch fails transiently, so the
// redelivered message is dispatched once more.
type SwapCommandHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
	Attempts int
	Backoff  time.Duration
}

func (h *SwapCommandHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	logger := h.logger().With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	var cmd SwapCommand
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		logger.Warn("dropping malformed swap command", "error", err)
		return nil
	}
	id := messageID(msg, cmd)
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, id)
		if err != nil {
			return err
		}
		if seen {
			logger.Debug("swap command already processed", "message_id", id)
			return nil
		}
	}

	err := h.dispatch(ctx, cmd)
	switch {
	case err == nil:
		logger.Info("swap command applied", "message_id", id, "type", cmd.Type, "swap_id", cmd.SwapID)
		return nil
	case errors.Is(err, ErrUnknownCommand), terminal(err):
		logger.Warn("swap command rejected", "message_id", id, "type", cmd.Type, "swap_id", cmd.SwapID, "error", err)
		return nil
	default:
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(context.WithoutCancel(ctx), id); ferr != nil {
				logger.Error("releasing inbox claim failed", "message_id", id, "error", ferr)
				return errors.Join(err, ferr)
			}
		}
		return err
	}
}

func (h *SwapCommandHandler) dispatch(ctx context.Context, cmd SwapCommand) error {
	if strings.ToLower(strings.TrimSpace(cmd.Type)) != "complete" {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	attempts := h.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	var err error
	for i := 0; i < attempts; i++ {
		_, err = commands.Dispatch[swapapp.CompleteSwapCommand, *dto.Swap](ctx, h.Commands, swapapp.CompleteSwapCommand{
			SwapID: cmd.SwapID,
			Source: "kafka",
		})
		if err == nil || terminal(err) {
			return err
		}
		if h.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(h.Backoff):
			}
		}
	}
	return err
}

// terminal errors will not change on retry.
func terminal(err error) bool {
	switch errs.Kind(err) {
	case errs.ErrValidation, errs.ErrNotFound, errs.ErrInvalidState, errs.ErrForbidden:
		return true
	}
	return false
}

// messageID prefers the producer's id, then a CloudEvents header, then the
// partition offset.
func messageID(msg *sarama.ConsumerMessage, cmd SwapCommand) string {
	if cmd.ID != "" {
		return cmd.ID
	}
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == "ce_id" {
			return string(h.Value)
		}
	}
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}

func (h *SwapCommandHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*SwapCommandHandler)(nil)
