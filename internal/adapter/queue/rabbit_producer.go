package queue

import (
	"context"
	"fmt"

	"github.com/aq2208/gorder-oms/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Topology names the exchange and the queue feeding the notification feed.
type Topology struct {
	Exchange           string
	NotificationsQueue string
}

var notificationBindings = []string{"order.#", "product.#"}

// RabbitProducer implements usecase.Publisher
type RabbitProducer struct {
	ch       *amqp.Channel
	exchange string
}

// NewRabbitProducer sets up the exchange, queue, and binding once at startup.
func NewRabbitProducer(ch *amqp.Channel, topo Topology) (*RabbitProducer, error) {
	// 1. declare exchange (topic type, durable)
	if err := ch.ExchangeDeclare(
		topo.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	// 2. declare queue
	q, err := ch.QueueDeclare(
		topo.NotificationsQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	// 3. bind queue → exchange
	for _, key := range notificationBindings {
		if err := ch.QueueBind(q.Name, key, topo.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("queue bind %s: %w", key, err)
		}
	}

	// 4. publisher confirms; Publish waits for the broker ack
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{ch: ch, exchange: topo.Exchange}, nil
}

// Publish sends payload with the outbox topic as routing key.
func (p *RabbitProducer) Publish(ctx context.Context, topic string, payload []byte) error {
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         payload,
	}

	conf, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		p.exchange, // exchange
		topic,      // routing key
		false,      // mandatory
		false,      // immediate
		pub,
	)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	ok, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !ok {
		return fmt.Errorf("publish %s: nacked by broker", topic)
	}
	return nil
}

var _ usecase.Publisher = (*RabbitProducer)(nil)
