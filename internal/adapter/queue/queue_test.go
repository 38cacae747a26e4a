package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aq2208/gorder-oms/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []usecase.EventMsg
	err    error
}

func (s *recordingSink) HandleEvent(_ context.Context, ev usecase.EventMsg) error {
	s.events = append(s.events, ev)
	return s.err
}

// fakeAck records how a delivery was settled.
type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAck) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func (a *fakeAck) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func TestLocalDispatcherDecodesEvents(t *testing.T) {
	sink := &recordingSink{}
	d := NewLocalDispatcher(NewEventHandler(sink))

	err := d.Publish(context.Background(), usecase.TopicOrderPlaced,
		[]byte(`{"id":"ev-1","type":"order.placed","orderNumber":1001,"customerName":"Ann"}`))
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "ev-1", sink.events[0].ID)
	assert.Equal(t, int64(1001), sink.events[0].OrderNumber)

	err = d.Publish(context.Background(), usecase.TopicOrderPlaced, []byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Len(t, sink.events, 1)
}

func TestRouterSettlesDeliveries(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &recordingSink{}
	r := NewRouter(nil, WithLogger(quiet), WithRequeue(true))
	reg := registration{queueName: "order.notifications.q", handler: NewEventHandler(sink), consumerTag: "c_test"}

	deliver := func(body string) *fakeAck {
		ack := &fakeAck{}
		r.dispatch(context.Background(), reg, amqp.Delivery{Acknowledger: ack, Body: []byte(body)})
		return ack
	}

	ack := deliver(`{"id":"ev-1","type":"product.created","productName":"Desk"}`)
	assert.True(t, ack.acked)

	ack = deliver(`{broken`)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "poison messages are dropped")

	sink.err = errors.New("db down")
	ack = deliver(`{"id":"ev-2","type":"product.created","productName":"Desk"}`)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}
