package usecase

import (
	"context"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/shopspring/decimal"
)

type ProductRepo interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetForUpdate reads a product and holds it for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	// AdjustStock adds delta to the product's stock. A negative delta that
	// would take stock below zero fails with domain.ErrInsufficientStock and
	// changes nothing.
	AdjustStock(ctx context.Context, id string, delta int, at time.Time) error
}

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// GetForUpdate reads an order and holds its row for the rest of the
	// transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)
	// List returns orders with the newest order number first.
	List(ctx context.Context) ([]domain.Order, error)
	Search(ctx context.Context, q string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, at time.Time) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	// MaxOrderNumber returns 0 when the ledger is empty.
	MaxOrderNumber(ctx context.Context) (int64, error)
	RevenueByStatus(ctx context.Context, status domain.Status) (decimal.Decimal, error)
}

type CustomerRepo interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
	// FindCollision returns a stored customer that c collides with, or nil.
	FindCollision(ctx context.Context, c *domain.Customer) (*domain.Customer, error)
	Update(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type NotificationRepo interface {
	// Create is a no-op when a notification for the same event already exists.
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, limit int) ([]domain.Notification, error)
}

type OutboxRecord struct {
	ID          int64
	Topic       string
	Payload     []byte
	Attempts    int
	NextAttempt time.Time
}

type OutboxRepo interface {
	Insert(ctx context.Context, topic string, payload []byte) error
	FetchDue(ctx context.Context, now time.Time, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkRetry(ctx context.Context, id int64, attempts int, next time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int) error
}

// Repos is the set of repositories bound to one connection or transaction.
type Repos struct {
	Products      ProductRepo
	Orders        OrderRepo
	Customers     CustomerRepo
	Users         UserRepo
	Notifications NotificationRepo
	Outbox        OutboxRepo
}

// Store gives access to repositories, either directly or inside a transaction.
// Tx commits when fn returns nil and rolls back otherwise.
type Store interface {
	Repos() Repos
	Tx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// Recorder receives domain metrics. A nil Recorder is replaced with a no-op.
type Recorder interface {
	OrderPlaced(total decimal.Decimal)
	OrderRejected(reason string)
	LowStock(productID string)
}

type nopRecorder struct{}

func (nopRecorder) OrderPlaced(decimal.Decimal) {}
func (nopRecorder) OrderRejected(string)        {}
func (nopRecorder) LowStock(string)             {}

// Clock is overridden in tests.
type Clock func() time.Time
