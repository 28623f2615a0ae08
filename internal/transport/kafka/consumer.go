package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"service-delivery/internal/logx"
	"service-delivery/internal/service/orders"
)

// HandleFunc processes a single orders.Event from Kafka
type HandleFunc func(context.Context, orders.Event) error

var newConsumerGroup = sarama.NewConsumerGroup

// Consumer wraps a Sarama consumer group and dispatches events to a handler
type Consumer struct {
	group      sarama.ConsumerGroup
	topic      string
	handler    HandleFunc
	logger     logx.Logger
	retryDelay time.Duration
}

// NewConsumer creates a new Kafka consumer. It returns nil, nil when Kafka is not configured.
func NewConsumer(logger logx.Logger, brokers []string, groupID, topic string, h HandleFunc) (*Consumer, error) {
	// не стратую если у кафки нет настроек
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logx.Nop()
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := newConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:      group,
		topic:      topic,
		handler:    h,
		logger:     logger.With(logx.String("topic", topic)),
		retryDelay: time.Second,
	}, nil
}

// Run consumes until ctx is done. A failed session is retried after a pause.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}
	topics := []string{c.topic}

	// Consume returns on every rebalance, so it is called in a loop
	for {
		err := c.group.Consume(ctx, topics, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			continue
		}
		c.logger.Warn("kafka consume error", logx.Err(err))

		pause := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			pause.Stop()
			return ctx.Err()
		case <-pause.C:
		}
	}
}

// Close closes the consumer group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim commits every message it is done with. A transient handler error
// ends the session without committing so the message is redelivered.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.process(sess.Context(), msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

// process returns an error only when the message must be read again.
func (h *groupHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	logger := h.c.logger.With(logx.Int64("offset", msg.Offset), logx.Int("partition", int(msg.Partition)))

	var dto EventDTO
	if err := json.Unmarshal(msg.Value, &dto); err != nil {
		logger.Warn("kafka bad json", logx.Err(err))
		return nil
	}
	ev, err := ToDomain(dto)
	if err != nil {
		logger.Warn("kafka empty order_id")
		return nil
	}

	err = h.c.handler(ctx, ev)
	if err == nil {
		return nil
	}
	logger = logger.With(logx.Int64("order_id", ev.OrderID), logx.String("status", ev.Status), logx.Err(err))
	if IsPermanent(err) {
		logger.Warn("kafka handle failed, skipping message")
		return nil
	}
	logger.Error("kafka handle failed, will retry")
	return err
}
