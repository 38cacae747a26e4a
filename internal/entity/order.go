package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// AnonymousCustomer is recorded when an order names no customer at all.
const AnonymousCustomer = "Anonymous"

// FirstOrderNumber is assigned when the ledger is empty.
const FirstOrderNumber int64 = 1001

var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Statuses {
		if st == v {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "status", Msg: "valid status is required: pending, processing, completed, cancelled"}
}

// LineItem snapshots the product name and unit price at order time.
type LineItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID            string
	OrderNumber   int64
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Items         []LineItem
	Total         decimal.Decimal
	Status        Status
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ComputeTotal sums price × quantity over the line items.
func ComputeTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// RestoresStockOnDelete reports whether deleting o gives its quantities back to the catalog.
func (o *Order) RestoresStockOnDelete() bool {
	return o.Status != StatusCancelled
}

// Matches implements the order search rule: customer name or any product name
// contains q (case-insensitive), or q is exactly the order number.
func (o *Order) Matches(q string) bool {
	q = strings.TrimSpace(q)
	if q == "" {
		return true
	}
	if n, ok := ParseOrderNumber(q); ok && n == o.OrderNumber {
		return true
	}
	lq := strings.ToLower(q)
	if strings.Contains(strings.ToLower(o.CustomerName), lq) {
		return true
	}
	for _, li := range o.Items {
		if strings.Contains(strings.ToLower(li.ProductName), lq) {
			return true
		}
	}
	return false
}
