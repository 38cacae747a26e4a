package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/shopspring/decimal"
)

const (
	outboxPending = "PENDING"
	outboxFailed  = "FAILED"
)

// maxNotifications bounds the in-memory feed; older entries are dropped.
const maxNotifications = 500

type memOutbox struct {
	usecase.OutboxRecord
	Status string
}

type memState struct {
	products      map[string]domain.Product
	orders        map[string]domain.Order
	customers     map[string]domain.Customer
	users         map[string]domain.User
	notifications []domain.Notification
	outbox        []memOutbox
	outboxSeq     int64
}

func newMemState() *memState {
	return &memState{
		products:  map[string]domain.Product{},
		orders:    map[string]domain.Order{},
		customers: map[string]domain.Customer{},
		users:     map[string]domain.User{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		products:      make(map[string]domain.Product, len(s.products)),
		orders:        make(map[string]domain.Order, len(s.orders)),
		customers:     make(map[string]domain.Customer, len(s.customers)),
		users:         make(map[string]domain.User, len(s.users)),
		notifications: append([]domain.Notification(nil), s.notifications...),
		outbox:        append([]memOutbox(nil), s.outbox...),
		outboxSeq:     s.outboxSeq,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.LineItem(nil), o.Items...)
	return o
}

// MemoryStore keeps everything in process. Transactions run one at a time on
// a private copy of the state that replaces the live state on commit.
type MemoryStore struct {
	mu sync.Mutex
	st *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

func (s *MemoryStore) Repos() usecase.Repos {
	return memRepos(&memView{store: s})
}

func (s *MemoryStore) Tx(ctx context.Context, fn func(ctx context.Context, r usecase.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, memRepos(&memView{store: s, tx: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

var _ usecase.Store = (*MemoryStore)(nil)

// memView is either bound to an open transaction (tx != nil, lock already
// held) or to the live state, locking per call.
type memView struct {
	store *MemoryStore
	tx    *memState
}

func (v *memView) with(fn func(st *memState) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

func memRepos(v *memView) usecase.Repos {
	return usecase.Repos{
		Products:      memProducts{v},
		Orders:        memOrders{v},
		Customers:     memCustomers{v},
		Users:         memUsers{v},
		Notifications: memNotifications{v},
		Outbox:        memOutboxRepo{v},
	}
}

// ---- products ----

type memProducts struct{ v *memView }

func (r memProducts) Create(_ context.Context, p *domain.Product) error {
	return r.v.with(func(st *memState) error {
		st.products[p.ID] = *p
		return nil
	})
}

func (r memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	var out *domain.Product
	err := r.v.with(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memProducts) GetForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.GetByID(ctx, id)
}

func (r memProducts) List(_ context.Context) ([]domain.Product, error) {
	var out []domain.Product
	_ = r.v.with(func(st *memState) error {
		out = make([]domain.Product, 0, len(st.products))
		for _, p := range st.products {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memProducts) Update(_ context.Context, p *domain.Product) error {
	return r.v.with(func(st *memState) error {
		if _, ok := st.products[p.ID]; !ok {
			return domain.ErrProductNotFound
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r memProducts) Delete(_ context.Context, id string) error {
	return r.v.with(func(st *memState) error {
		if _, ok := st.products[id]; !ok {
			return domain.ErrProductNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func (r memProducts) Count(_ context.Context) (int64, error) {
	var n int64
	_ = r.v.with(func(st *memState) error {
		n = int64(len(st.products))
		return nil
	})
	return n, nil
}

func (r memProducts) AdjustStock(_ context.Context, id string, delta int, at time.Time) error {
	return r.v.with(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		if p.Stock+delta < 0 {
			return domain.ErrInsufficientStock
		}
		p.Stock += delta
		p.UpdatedAt = at
		st.products[id] = p
		return nil
	})
}

// ---- orders ----

type memOrders struct{ v *memView }

func (r memOrders) Create(_ context.Context, o *domain.Order) error {
	return r.v.with(func(st *memState) error {
		st.orders[o.ID] = copyOrder(*o)
		return nil
	})
}

func (r memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	var out *domain.Order
	err := r.v.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		o = copyOrder(o)
		out = &o
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock: a transaction already holds the store.
func (r memOrders) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) List(ctx context.Context) ([]domain.Order, error) {
	return r.filter(func(*domain.Order) bool { return true }), nil
}

func (r memOrders) Search(_ context.Context, q string) ([]domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.Matches(q) }), nil
}

func (r memOrders) filter(keep func(*domain.Order) bool) []domain.Order {
	out := []domain.Order{}
	_ = r.v.with(func(st *memState) error {
		for _, o := range st.orders {
			if keep(&o) {
				out = append(out, copyOrder(o))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	return out
}

func (r memOrders) UpdateStatus(_ context.Context, id string, status domain.Status, at time.Time) error {
	return r.v.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		o.Status = status
		o.UpdatedAt = at
		st.orders[id] = o
		return nil
	})
}

func (r memOrders) Delete(_ context.Context, id string) error {
	return r.v.with(func(st *memState) error {
		if _, ok := st.orders[id]; !ok {
			return domain.ErrOrderNotFound
		}
		delete(st.orders, id)
		return nil
	})
}

func (r memOrders) Count(_ context.Context) (int64, error) {
	var n int64
	_ = r.v.with(func(st *memState) error {
		n = int64(len(st.orders))
		return nil
	})
	return n, nil
}

func (r memOrders) MaxOrderNumber(_ context.Context) (int64, error) {
	var max int64
	_ = r.v.with(func(st *memState) error {
		for _, o := range st.orders {
			if o.OrderNumber > max {
				max = o.OrderNumber
			}
		}
		return nil
	})
	return max, nil
}

func (r memOrders) RevenueByStatus(_ context.Context, status domain.Status) (decimal.Decimal, error) {
	sum := decimal.Zero
	_ = r.v.with(func(st *memState) error {
		for _, o := range st.orders {
			if o.Status == status {
				sum = sum.Add(o.Total)
			}
		}
		return nil
	})
	return sum, nil
}

// ---- customers ----

type memCustomers struct{ v *memView }

func (r memCustomers) Create(_ context.Context, c *domain.Customer) error {
	return r.v.with(func(st *memState) error {
		st.customers[c.ID] = *c
		return nil
	})
}

func (r memCustomers) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.v.with(func(st *memState) error {
		c, ok := st.customers[id]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r memCustomers) List(_ context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	_ = r.v.with(func(st *memState) error {
		out = make([]domain.Customer, 0, len(st.customers))
		for _, c := range st.customers {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memCustomers) FindCollision(_ context.Context, c *domain.Customer) (*domain.Customer, error) {
	var out *domain.Customer
	_ = r.v.with(func(st *memState) error {
		for _, other := range st.customers {
			if c.CollidesWith(&other) {
				o := other
				out = &o
				return nil
			}
		}
		return nil
	})
	return out, nil
}

func (r memCustomers) Update(_ context.Context, c *domain.Customer) error {
	return r.v.with(func(st *memState) error {
		if _, ok := st.customers[c.ID]; !ok {
			return domain.ErrCustomerNotFound
		}
		st.customers[c.ID] = *c
		return nil
	})
}

func (r memCustomers) Delete(_ context.Context, id string) error {
	return r.v.with(func(st *memState) error {
		if _, ok := st.customers[id]; !ok {
			return domain.ErrCustomerNotFound
		}
		delete(st.customers, id)
		return nil
	})
}

func (r memCustomers) Count(_ context.Context) (int64, error) {
	var n int64
	_ = r.v.with(func(st *memState) error {
		n = int64(len(st.customers))
		return nil
	})
	return n, nil
}

// ---- users ----

type memUsers struct{ v *memView }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	return r.v.with(func(st *memState) error {
		for _, other := range st.users {
			if strings.EqualFold(other.Email, u.Email) {
				return domain.ErrUserExists
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.v.with(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.v.with(func(st *memState) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

// ---- notifications ----

type memNotifications struct{ v *memView }

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	return r.v.with(func(st *memState) error {
		if n.EventID != "" {
			for _, existing := range st.notifications {
				if existing.EventID == n.EventID {
					return nil
				}
			}
		}
		st.notifications = append(st.notifications, *n)
		if over := len(st.notifications) - maxNotifications; over > 0 {
			st.notifications = append([]domain.Notification(nil), st.notifications[over:]...)
		}
		return nil
	})
}

func (r memNotifications) List(_ context.Context, limit int) ([]domain.Notification, error) {
	out := []domain.Notification{}
	_ = r.v.with(func(st *memState) error {
		for i := len(st.notifications) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, st.notifications[i])
		}
		return nil
	})
	return out, nil
}

// ---- outbox ----

type memOutboxRepo struct{ v *memView }

func (r memOutboxRepo) Insert(_ context.Context, topic string, payload []byte) error {
	return r.v.with(func(st *memState) error {
		st.outboxSeq++
		st.outbox = append(st.outbox, memOutbox{
			OutboxRecord: usecase.OutboxRecord{
				ID:      st.outboxSeq,
				Topic:   topic,
				Payload: append([]byte(nil), payload...),
			},
			Status: outboxPending,
		})
		return nil
	})
}

func (r memOutboxRepo) FetchDue(_ context.Context, now time.Time, limit int) ([]usecase.OutboxRecord, error) {
	var out []usecase.OutboxRecord
	_ = r.v.with(func(st *memState) error {
		for _, rec := range st.outbox {
			if len(out) >= limit {
				break
			}
			if rec.Status == outboxPending && !rec.NextAttempt.After(now) {
				out = append(out, rec.OutboxRecord)
			}
		}
		return nil
	})
	return out, nil
}

func (r memOutboxRepo) update(id int64, fn func(rec *memOutbox)) error {
	return r.v.with(func(st *memState) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				fn(&st.outbox[i])
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

// MarkSent drops the row. Nothing reads delivered records back, so keeping
// them would only grow every transaction's snapshot.
func (r memOutboxRepo) MarkSent(_ context.Context, id int64, _ time.Time) error {
	return r.v.with(func(st *memState) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				st.outbox = append(st.outbox[:i:i], st.outbox[i+1:]...)
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

func (r memOutboxRepo) MarkRetry(_ context.Context, id int64, attempts int, next time.Time) error {
	return r.update(id, func(rec *memOutbox) {
		rec.Attempts = attempts
		rec.NextAttempt = next
	})
}

func (r memOutboxRepo) MarkFailed(_ context.Context, id int64, attempts int) error {
	return r.update(id, func(rec *memOutbox) {
		rec.Attempts = attempts
		rec.Status = outboxFailed
	})
}
