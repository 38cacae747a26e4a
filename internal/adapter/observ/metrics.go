package observ

import (
	"context"

	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders accepted by the placement rule",
	})

	orderValue = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_value",
		Help:    "Total value of accepted orders",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	ordersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Order placements rejected, by reason",
		},
		[]string{"reason"},
	)

	lowStockEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_low_stock_events_total",
		Help: "Placements that left a product under the low-stock threshold",
	})

	outboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_total",
			Help: "Outbox publish attempts, by topic and result",
		},
		[]string{"topic", "result"},
	)
)

// Recorder reports domain events to Prometheus.
type Recorder struct{}

func (Recorder) OrderPlaced(total decimal.Decimal) {
	ordersPlaced.Inc()
	orderValue.Observe(total.InexactFloat64())
}

func (Recorder) OrderRejected(reason string) { ordersRejected.WithLabelValues(reason).Inc() }

func (Recorder) LowStock(string) { lowStockEvents.Inc() }

var _ usecase.Recorder = Recorder{}

// CountingPublisher counts publish outcomes of the wrapped Publisher.
type CountingPublisher struct {
	Next usecase.Publisher
}

func (p CountingPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	err := p.Next.Publish(ctx, topic, payload)
	result := "ok"
	if err != nil {
		result = "error"
	}
	outboxPublished.WithLabelValues(topic, result).Inc()
	return err
}
