package usecase

import (
	"context"
	"strings"

	domain "github.com/aq2208/gorder-oms/internal/entity"
)

type OrderQuery struct {
	store Store
}

func NewOrderQuery(store Store) *OrderQuery {
	return &OrderQuery{store: store}
}

func (q *OrderQuery) List(ctx context.Context) ([]domain.Order, error) {
	return q.store.Repos().Orders.List(ctx)
}

func (q *OrderQuery) Get(ctx context.Context, id string) (*domain.Order, error) {
	return q.store.Repos().Orders.GetByID(ctx, id)
}

// Search matches customer name, item product name, or exact order number.
// An empty query lists everything.
func (q *OrderQuery) Search(ctx context.Context, term string) ([]domain.Order, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return q.List(ctx)
	}
	return q.store.Repos().Orders.Search(ctx, term)
}
