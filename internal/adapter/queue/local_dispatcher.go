package queue

import (
	"context"

	"github.com/aq2208/gorder-oms/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

// LocalDispatcher delivers outbox payloads to an in-process Handler. It stands
// in for the broker when no RabbitMQ URL is configured.
type LocalDispatcher struct {
	h Handler
}

func NewLocalDispatcher(h Handler) *LocalDispatcher {
	return &LocalDispatcher{h: h}
}

func (l *LocalDispatcher) Publish(ctx context.Context, topic string, payload []byte) error {
	return l.h.Handle(ctx, amqp.Delivery{
		RoutingKey:  topic,
		ContentType: "application/json",
		Body:        payload,
	})
}

var _ usecase.Publisher = (*LocalDispatcher)(nil)
