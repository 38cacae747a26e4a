package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/gorder-oms/internal/adapter/repo"
	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store   *repo.MemoryStore
	catalog *usecase.Catalog
	dir     *usecase.Directory
	place   *usecase.PlaceOrder
	status  *usecase.UpdateOrderStatus
	del     *usecase.DeleteOrder
	query   *usecase.OrderQuery
	rec     *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repo.NewMemoryStore()
	rec := &fakeRecorder{}
	return &fixture{
		store:   store,
		catalog: usecase.NewCatalog(store),
		dir:     usecase.NewDirectory(store),
		place:   usecase.NewPlaceOrder(store, nil, rec, 5),
		status:  usecase.NewUpdateOrderStatus(store),
		del:     usecase.NewDeleteOrder(store),
		query:   usecase.NewOrderQuery(store),
		rec:     rec,
	}
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *domain.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), domain.Product{Name: name, Price: dec(price), Stock: stock})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) order(t *testing.T, customer string, items ...usecase.OrderItemInput) *domain.Order {
	t.Helper()
	o, err := f.place.Execute(context.Background(), usecase.PlaceOrderInput{CustomerName: customer, Items: items})
	require.NoError(t, err)
	return o
}

// pendingTopics lists the topics of all outbox rows not yet relayed.
func (f *fixture) pendingTopics(t *testing.T) []string {
	t.Helper()
	recs, err := f.store.Repos().Outbox.FetchDue(context.Background(), time.Now().Add(time.Hour), 1000)
	require.NoError(t, err)
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Topic
	}
	return out
}

func item(id string, qty int) usecase.OrderItemInput {
	return usecase.OrderItemInput{ProductID: id, Quantity: qty}
}

type fakeRecorder struct {
	mu       sync.Mutex
	placed   int
	rejected map[string]int
	lowStock int
}

func (r *fakeRecorder) OrderPlaced(decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed++
}

func (r *fakeRecorder) OrderRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejected == nil {
		r.rejected = map[string]int{}
	}
	r.rejected[reason]++
}

func (r *fakeRecorder) LowStock(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lowStock++
}

// fakeIdem is an in-process IdempotencyStore.
type fakeIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	values map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{locks: map[string]bool{}, values: map[string]string{}}
}

func (f *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := scope + ":" + key
	if f.locks[k] {
		return false, nil
	}
	f.locks[k] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, scope, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, scope+":"+key)
	return nil
}

func (f *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[scope+":"+key] = value
	return nil
}

func (f *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[scope+":"+key]
	return v, ok, nil
}
