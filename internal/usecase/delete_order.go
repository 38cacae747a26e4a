package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
)

// DeleteOrder removes an order and, unless it was cancelled, puts its line
// quantities back into stock.
type DeleteOrder struct {
	store Store
	now   Clock
}

func NewDeleteOrder(store Store) *DeleteOrder {
	return &DeleteOrder{store: store, now: time.Now}
}

func (uc *DeleteOrder) Execute(ctx context.Context, id string) error {
	now := uc.now()
	err := uc.store.Tx(ctx, func(ctx context.Context, r Repos) error {
		// lock the row so a concurrent status change cannot slip in between
		// the cancelled check and the stock restore
		o, err := r.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if o.RestoresStockOnDelete() {
			for _, li := range o.Items {
				err := r.Products.AdjustStock(ctx, li.ProductID, li.Quantity, now)
				// the product may have been removed from the catalog since
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				if err != nil {
					return fmt.Errorf("restore stock %s: %w", li.ProductID, err)
				}
			}
		}

		if err := r.Orders.Delete(ctx, id); err != nil {
			return err
		}

		ev := newEvent(TopicOrderDeleted, now)
		ev.OrderID = o.ID
		ev.OrderNumber = o.OrderNumber
		ev.CustomerName = o.CustomerName
		ev.Status = string(o.Status)
		return appendEvent(ctx, r.Outbox, ev)
	})
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	return nil
}
