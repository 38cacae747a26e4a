package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/google/uuid"
)

var ErrDuplicate = errors.New("duplicate idempotency key")

type OrderItemInput struct {
	ProductID string
	Quantity  int
}

type PlaceOrderInput struct {
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	Items          []OrderItemInput
	CreatedBy      string
	IdempotencyKey string
}

// PlaceOrder validates an order against the catalog, persists it and takes the
// ordered quantities out of stock in a single store transaction.
type PlaceOrder struct {
	store    Store
	idem     IdempotencyStore
	rec      Recorder
	now      Clock
	lowStock int
}

func NewPlaceOrder(store Store, idem IdempotencyStore, rec Recorder, lowStockThreshold int) *PlaceOrder {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &PlaceOrder{store: store, idem: idem, rec: rec, now: time.Now, lowStock: lowStockThreshold}
}

func (uc *PlaceOrder) WithClock(c Clock) *PlaceOrder {
	uc.now = c
	return uc
}

func (uc *PlaceOrder) Execute(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if err := validateItems(in.Items); err != nil {
		uc.rec.OrderRejected(rejectReason(err))
		return nil, err
	}

	locked := false
	if uc.idem != nil && in.IdempotencyKey != "" {
		// Fast path: idempotency recall
		if id, ok, _ := uc.idem.Recall(ctx, in.CreatedBy, in.IdempotencyKey); ok {
			return uc.store.Repos().Orders.GetByID(ctx, id)
		}
		ok, err := uc.idem.TryLock(ctx, in.CreatedBy, in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lock: %w", err)
		}
		if !ok {
			return nil, ErrDuplicate
		}
		locked = true
	}

	order, low, err := uc.place(ctx, in)
	if err != nil {
		if locked {
			_ = uc.idem.Release(ctx, in.CreatedBy, in.IdempotencyKey)
		}
		uc.rec.OrderRejected(rejectReason(err))
		return nil, err
	}
	if locked {
		_ = uc.idem.Remember(ctx, in.CreatedBy, in.IdempotencyKey, order.ID)
	}
	uc.rec.OrderPlaced(order.Total)
	for _, id := range low {
		uc.rec.LowStock(id)
	}
	return order, nil
}

// place runs the placement transaction and returns the created order along
// with the products it pushed under the low-stock threshold.
func (uc *PlaceOrder) place(ctx context.Context, in PlaceOrderInput) (*domain.Order, []string, error) {
	now := uc.now()

	// Aggregate per product so repeated lines cannot oversell together.
	need := make(map[string]int, len(in.Items))
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if _, seen := need[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		need[it.ProductID] += it.Quantity
	}
	// Lock rows in a stable order so concurrent placements cannot deadlock.
	sort.Strings(ids)

	var (
		created *domain.Order
		lowIDs  []string
	)
	err := uc.store.Tx(ctx, func(ctx context.Context, r Repos) error {
		// the closure may run again after a deadlock
		lowIDs = lowIDs[:0]

		cust, err := resolveCustomer(ctx, r.Customers, in)
		if err != nil {
			return err
		}

		products := make(map[string]*domain.Product, len(ids))
		for _, id := range ids {
			p, err := r.Products.GetForUpdate(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("load product %s: %w", id, err)
			}
			products[id] = p
		}

		// 1) every line must reference a known product
		for _, it := range in.Items {
			if products[it.ProductID] == nil {
				return &domain.UnknownProductError{ProductID: it.ProductID}
			}
		}

		// 2) stock must cover the requested quantity
		items := make([]domain.LineItem, 0, len(in.Items))
		for _, it := range in.Items {
			p := products[it.ProductID]
			if need[p.ID] > p.Stock {
				return &domain.StockError{ProductID: p.ID, ProductName: p.Name, Requested: need[p.ID], Available: p.Stock}
			}
			items = append(items, domain.LineItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    it.Quantity,
				Price:       p.Price,
			})
		}

		// 3) + 4) total and order number
		last, err := r.Orders.MaxOrderNumber(ctx)
		if err != nil {
			return fmt.Errorf("max order number: %w", err)
		}
		number := domain.FirstOrderNumber
		if last > 0 {
			number = last + 1
		}

		order := &domain.Order{
			ID:            uuid.NewString(),
			OrderNumber:   number,
			CustomerID:    in.CustomerID,
			CustomerName:  cust.Name,
			CustomerEmail: cust.Email,
			CustomerPhone: cust.Phone,
			Items:         items,
			Total:         domain.ComputeTotal(items),
			Status:        domain.StatusPending,
			CreatedBy:     in.CreatedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		// 5) persist
		if err := r.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		// 6) take stock
		var low []*domain.Product
		for _, id := range ids {
			p := products[id]
			if err := r.Products.AdjustStock(ctx, id, -need[id], now); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) {
					return &domain.StockError{ProductID: id, ProductName: p.Name, Requested: need[id], Available: p.Stock}
				}
				return fmt.Errorf("decrement stock %s: %w", id, err)
			}
			if p.Stock-need[id] < uc.lowStock {
				low = append(low, &domain.Product{ID: p.ID, Name: p.Name, Stock: p.Stock - need[id]})
			}
		}

		ev := newEvent(TopicOrderPlaced, now)
		ev.OrderID = order.ID
		ev.OrderNumber = order.OrderNumber
		ev.CustomerName = order.CustomerName
		ev.ItemCount = len(order.Items)
		ev.Total = order.Total.StringFixed(2)
		ev.Status = string(order.Status)
		if err := appendEvent(ctx, r.Outbox, ev); err != nil {
			return err
		}
		for _, p := range low {
			ev := newEvent(TopicProductLowStock, now)
			ev.ProductID = p.ID
			ev.ProductName = p.Name
			ev.Stock = p.Stock
			if err := appendEvent(ctx, r.Outbox, ev); err != nil {
				return err
			}
			lowIDs = append(lowIDs, p.ID)
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, lowIDs, nil
}

type customerSnapshot struct {
	Name, Email, Phone string
}

func resolveCustomer(ctx context.Context, customers CustomerRepo, in PlaceOrderInput) (customerSnapshot, error) {
	snap := customerSnapshot{
		Name:  strings.TrimSpace(in.CustomerName),
		Email: strings.TrimSpace(in.CustomerEmail),
		Phone: strings.TrimSpace(in.CustomerPhone),
	}
	if in.CustomerID != "" {
		c, err := customers.GetByID(ctx, in.CustomerID)
		if errors.Is(err, domain.ErrNotFound) {
			return snap, &domain.UnknownCustomerError{CustomerID: in.CustomerID}
		}
		if err != nil {
			return snap, fmt.Errorf("load customer %s: %w", in.CustomerID, err)
		}
		if snap.Name == "" {
			snap.Name = c.Name
		}
		if snap.Email == "" {
			snap.Email = c.Email
		}
		if snap.Phone == "" {
			snap.Phone = c.Phone
		}
	}
	if snap.Name == "" {
		snap.Name = domain.AnonymousCustomer
	}
	return snap, nil
}

func validateItems(items []OrderItemInput) error {
	if len(items) == 0 {
		return &domain.ValidationError{Field: "items", Msg: "at least one item is required"}
	}
	for _, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return &domain.ValidationError{Field: "items.productId", Msg: "each item must have productId and quantity"}
		}
		if it.Quantity < 1 {
			return &domain.ValidationError{Field: "items.quantity", Msg: "quantity must be at least 1"}
		}
	}
	return nil
}

func rejectReason(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return "customer_not_found"
	default:
		return "error"
	}
}
