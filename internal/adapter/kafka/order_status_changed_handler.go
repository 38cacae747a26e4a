package kafka

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
)

// ErrPermanent wraps failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

type StatusUpdater interface {
	Execute(ctx context.Context, id, status string) (*domain.Order, error)
}

// OrderStatusChangedHandler applies status changes reported by the
// fulfillment system through the same path as the REST endpoint.
type OrderStatusChangedHandler struct {
	Updater StatusUpdater
}

func NewOrderStatusChangedHandler(u StatusUpdater) *OrderStatusChangedHandler {
	return &OrderStatusChangedHandler{Updater: u}
}

func (h *OrderStatusChangedHandler) Handle(ctx context.Context, ev usecase.OrderStatusChangedMsg) error {
	if ev.OrderID == "" {
		return fmt.Errorf("%w: missing orderId", ErrPermanent)
	}
	_, err := h.Updater.Execute(ctx, ev.OrderID, ev.Status)
	var ve *domain.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ve), errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	default:
		return err
	}
}
