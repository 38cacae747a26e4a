package usecase

import (
	"context"
	"fmt"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
)

// UpdateOrderStatus overwrites an order's status. Any status may follow any
// other; only membership in the status set is checked.
type UpdateOrderStatus struct {
	store Store
	now   Clock
}

func NewUpdateOrderStatus(store Store) *UpdateOrderStatus {
	return &UpdateOrderStatus{store: store, now: time.Now}
}

func (uc *UpdateOrderStatus) WithClock(c Clock) *UpdateOrderStatus {
	uc.now = c
	return uc
}

func (uc *UpdateOrderStatus) Execute(ctx context.Context, id, status string) (*domain.Order, error) {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	now := uc.now()

	var updated *domain.Order
	err = uc.store.Tx(ctx, func(ctx context.Context, r Repos) error {
		if err := r.Orders.UpdateStatus(ctx, id, st, now); err != nil {
			return err
		}
		o, err := r.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		ev := newEvent(TopicOrderStatusChanged, now)
		ev.OrderID = o.ID
		ev.OrderNumber = o.OrderNumber
		ev.CustomerName = o.CustomerName
		ev.Status = string(o.Status)
		if err := appendEvent(ctx, r.Outbox, ev); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update status of order %s: %w", id, err)
	}
	return updated, nil
}
