package usecase

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/google/uuid"
)

const DefaultNotificationLimit = 50

// Notifications turns outbox events into the human-readable feed.
type Notifications struct {
	store Store
}

func NewNotifications(store Store) *Notifications {
	return &Notifications{store: store}
}

func (uc *Notifications) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return uc.store.Repos().Notifications.List(ctx, limit)
}

// HandleEvent records the notification for ev. Redelivered events are
// recorded once.
func (uc *Notifications) HandleEvent(ctx context.Context, ev EventMsg) error {
	msg, typ, ok := render(ev)
	if !ok {
		return nil
	}
	n := &domain.Notification{
		ID:      uuid.NewString(),
		EventID: ev.ID,
		Message: msg,
		Type:    typ,
		Time:    ev.OccurredAt,
	}
	if err := uc.store.Repos().Notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification for %s: %w", ev.ID, err)
	}
	return nil
}

func render(ev EventMsg) (string, domain.NotificationType, bool) {
	switch ev.Type {
	case TopicOrderPlaced:
		noun := "items"
		if ev.ItemCount == 1 {
			noun = "item"
		}
		return fmt.Sprintf("Order #%d placed for %s (%d %s, total %s)",
			ev.OrderNumber, ev.CustomerName, ev.ItemCount, noun, ev.Total), domain.NotificationSuccess, true
	case TopicProductLowStock:
		return fmt.Sprintf("Low stock alert for %s (%d left)", ev.ProductName, ev.Stock), domain.NotificationWarning, true
	case TopicProductCreated:
		return fmt.Sprintf("Product %q created", ev.ProductName), domain.NotificationInfo, true
	case TopicOrderStatusChanged:
		return fmt.Sprintf("Order #%d is now %s", ev.OrderNumber, strings.ToLower(ev.Status)), domain.NotificationInfo, true
	case TopicOrderDeleted:
		return fmt.Sprintf("Order #%d deleted", ev.OrderNumber), domain.NotificationInfo, true
	default:
		return "", "", false
	}
}
