package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outbox topics; they double as AMQP routing keys.
const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderDeleted       = "order.deleted"
	TopicProductCreated     = "product.created"
	TopicProductLowStock    = "product.low_stock"
)

// EventMsg is written to the outbox alongside the state change it describes.
type EventMsg struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	OccurredAt   time.Time `json:"occurredAt"`
	OrderID      string    `json:"orderId,omitempty"`
	OrderNumber  int64     `json:"orderNumber,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	ItemCount    int       `json:"itemCount,omitempty"`
	Total        string    `json:"total,omitempty"`
	Status       string    `json:"status,omitempty"`
	ProductID    string    `json:"productId,omitempty"`
	ProductName  string    `json:"productName,omitempty"`
	Stock        int       `json:"stock"`
}

func newEvent(typ string, at time.Time) EventMsg {
	return EventMsg{ID: uuid.NewString(), Type: typ, OccurredAt: at.UTC()}
}

func appendEvent(ctx context.Context, out OutboxRepo, ev EventMsg) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	if err := out.Insert(ctx, ev.Type, payload); err != nil {
		return fmt.Errorf("outbox insert %s: %w", ev.Type, err)
	}
	return nil
}

// OrderStatusChangedMsg is published by the fulfillment system on Kafka.
type OrderStatusChangedMsg struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"` // pending | processing | completed | cancelled
}
