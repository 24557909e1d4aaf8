package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// Consumer runs one consumer-group member. Offsets are committed only for
// messages the handler accepted.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("kafka consumer: handler required")
	}
	if cfg == nil {
		cfg = NewConfig("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group %s: %w", groupID, err)
	}
	return &Consumer{
		group:   group,
		handler: handler,
		logger:  logger.With("group", groupID),
		backoff: 2 * time.Second,
	}, nil
}

// Run rejoins the group after every rebalance until ctx ends. Broker errors
// are logged and retried after a pause; a closed group ends Run quietly.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	c.logger.Info("kafka consumer starting", "topics", topics)
	member := groupMember{handler: c.handler, logger: c.logger}
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, topics, member)
		switch {
		case err == nil:
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		default:
			c.logger.Warn("kafka consume failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
		}
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupMember struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (groupMember) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupMember) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim leaves a failed message unmarked so it is redelivered after
// the next rebalance.
func (m groupMember) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := m.handler.Handle(sess.Context(), msg); err != nil {
				m.logger.Error("kafka message failed",
					"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
				continue
			}
			sess.MarkMessage(msg, "")
		}
	}
}
