package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/aq2208/gorder-oms/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.OrderStatusChangedMsg) error

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: log,
	}
}

// Start blocks until ctx is cancelled or the group is closed.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &cgHandler{handle: c.Handle, logger: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

const (
	defaultRetryBackoff = 200 * time.Millisecond
	defaultMaxBackoff   = 10 * time.Second
)

type cgHandler struct {
	handle HandlerFunc
	logger *slog.Logger

	retryBackoff time.Duration
	maxBackoff   time.Duration
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim handles a partition strictly in order. Marking an offset
// commits everything before it, so a message that fails transiently is
// retried in place and nothing after it is marked until it goes through.
// If the session ends first the message stays uncommitted and is
// redelivered to whoever owns the partition next.
func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !h.deliver(ctx, msg) {
				return nil
			}
			sess.MarkMessage(msg, "")
		case <-ctx.Done():
			return nil
		}
	}
}

// deliver runs process until it succeeds, backing off between attempts.
// It returns false only when ctx is done first.
func (h *cgHandler) deliver(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	wait, ceiling := h.retryBackoff, h.maxBackoff
	if wait <= 0 {
		wait = defaultRetryBackoff
	}
	if ceiling <= 0 {
		ceiling = defaultMaxBackoff
	}
	for {
		if h.process(ctx, msg) {
			return true
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		wait = min(wait*2, ceiling)
	}
}

// process reports whether the offset may be committed. Undecodable and
// permanently invalid messages are committed so they are not redelivered.
func (h *cgHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	var ev usecase.OrderStatusChangedMsg
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.logger.Error("kafka decode error", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		return true
	}
	if err := h.handle(ctx, ev); err != nil {
		if errors.Is(err, ErrPermanent) {
			h.logger.Error("kafka message rejected", "err", err, "key", string(msg.Key), "offset", msg.Offset)
			return true
		}
		h.logger.Error("kafka handler error", "err", err, "key", string(msg.Key), "offset", msg.Offset)
		return false
	}
	return true
}
