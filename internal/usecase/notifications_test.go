package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/gorder-oms/internal/adapter/queue"
	domain "github.com/aq2208/gorder-oms/internal/entity"
	"github.com/aq2208/gorder-oms/internal/security"
	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNotifications_HandleEvent(t *testing.T) {
	f := newFixture(t)
	feed := usecase.NewNotifications(f.store)
	ctx := context.Background()

	placed := usecase.EventMsg{
		ID: "e1", Type: usecase.TopicOrderPlaced, OccurredAt: time.Now(),
		OrderNumber: 1001, CustomerName: "Alice", ItemCount: 2, Total: "300.00",
	}
	require.NoError(t, feed.HandleEvent(ctx, placed))
	// redelivery is recorded once
	require.NoError(t, feed.HandleEvent(ctx, placed))
	require.NoError(t, feed.HandleEvent(ctx, usecase.EventMsg{
		ID: "e2", Type: usecase.TopicProductLowStock, OccurredAt: time.Now(), ProductName: "Widget", Stock: 2,
	}))
	require.NoError(t, feed.HandleEvent(ctx, usecase.EventMsg{ID: "e3", Type: "something.else"}))

	list, err := feed.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Low stock alert for Widget (2 left)", list[0].Message)
	assert.Equal(t, domain.NotificationWarning, list[0].Type)
	assert.Equal(t, "Order #1001 placed for Alice (2 items, total 300.00)", list[1].Message)
	assert.Equal(t, domain.NotificationSuccess, list[1].Type)

	one, err := feed.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

// flakyPublisher fails the first n publishes.
type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	topics   []string
}

func (p *flakyPublisher) Publish(_ context.Context, topic string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func TestOutboxRelay_DeliversToFeed(t *testing.T) {
	f := newFixture(t)
	feed := usecase.NewNotifications(f.store)
	w := f.product(t, "Widget", "10.00", 6)
	f.order(t, "Alice", item(w.ID, 3))

	relay := usecase.NewOutboxRelay(f.store, queue.NewLocalDispatcher(queue.NewEventHandler(feed)), usecase.RelayConfig{}, nil)
	n, err := relay.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, f.pendingTopics(t))

	list, err := feed.List(context.Background(), 10)
	require.NoError(t, err)
	msgs := make([]string, len(list))
	for i, n := range list {
		msgs[i] = n.Message
	}
	assert.Equal(t, []string{
		"Low stock alert for Widget (3 left)",
		"Order #1001 placed for Alice (1 item, total 30.00)",
		`Product "Widget" created`,
	}, msgs)
}

func TestOutboxRelay_RetriesThenParks(t *testing.T) {
	f := newFixture(t)
	f.product(t, "Widget", "10.00", 6)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	pub := &flakyPublisher{failures: 3}
	relay := usecase.NewOutboxRelay(f.store, pub, usecase.RelayConfig{
		MaxAttempts: 3,
		BaseBackoff: time.Second,
	}, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	n, err := relay.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// backing off: nothing is due yet
	n, err = relay.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, pub.failures)

	now = now.Add(time.Second)
	_, err = relay.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pub.failures)

	now = now.Add(2 * time.Second)
	_, err = relay.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, pub.failures)

	// third failure reached MaxAttempts: the row is parked for good
	now = now.Add(time.Hour)
	n, err = relay.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.topics)
	assert.Empty(t, f.pendingTopics(t))
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	f.product(t, "Widget", "10.00", 6)
	pub := &flakyPublisher{}
	relay := usecase.NewOutboxRelay(f.store, pub, usecase.RelayConfig{PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.topics) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestSeed_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tokens := security.NewTokenIssuer("test-secret", "order-api", "order-api-clients", time.Hour)
	auth := usecase.NewAuth(f.store, tokens, nil)

	rep, err := usecase.Seed(ctx, f.store, auth, f.catalog, f.dir)
	require.NoError(t, err)
	assert.Equal(t, usecase.SeedReport{AdminCreated: true, Products: 5, Customers: 3}, rep)

	rep, err = usecase.Seed(ctx, f.store, auth, f.catalog, f.dir)
	require.NoError(t, err)
	assert.Equal(t, usecase.SeedReport{}, rep)

	_, err = auth.Login(ctx, usecase.SeedAdminEmail, usecase.SeedAdminPassword)
	assert.NoError(t, err)
}
