package usecase

import (
	"context"
	"fmt"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/shopspring/decimal"
)

type StatsView struct {
	TotalOrders    int64
	TotalProducts  int64
	TotalCustomers int64
	TotalRevenue   decimal.Decimal // completed orders only, rounded to cents
}

// Stats is recomputed from the store on every call.
type Stats struct {
	store Store
}

func NewStats(store Store) *Stats {
	return &Stats{store: store}
}

func (uc *Stats) Execute(ctx context.Context) (StatsView, error) {
	r := uc.store.Repos()
	var (
		v   StatsView
		err error
	)
	if v.TotalOrders, err = r.Orders.Count(ctx); err != nil {
		return StatsView{}, fmt.Errorf("count orders: %w", err)
	}
	if v.TotalProducts, err = r.Products.Count(ctx); err != nil {
		return StatsView{}, fmt.Errorf("count products: %w", err)
	}
	if v.TotalCustomers, err = r.Customers.Count(ctx); err != nil {
		return StatsView{}, fmt.Errorf("count customers: %w", err)
	}
	revenue, err := r.Orders.RevenueByStatus(ctx, domain.StatusCompleted)
	if err != nil {
		return StatsView{}, fmt.Errorf("revenue: %w", err)
	}
	v.TotalRevenue = revenue.Round(2)
	return v, nil
}
