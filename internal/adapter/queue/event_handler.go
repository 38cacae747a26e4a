package queue

import (
	"context"

	"github.com/aq2208/gorder-oms/internal/usecase"
)

// EventSink is the port the notification feed implements.
type EventSink interface {
	HandleEvent(ctx context.Context, ev usecase.EventMsg) error
}

// NewEventHandler decodes outbox events and hands them to sink.
func NewEventHandler(sink EventSink) Handler {
	return JSONHandler[usecase.EventMsg]{HandleFunc: sink.HandleEvent}
}
