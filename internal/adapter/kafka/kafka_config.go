package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

type GroupConfig struct {
	Brokers  []string
	GroupID  string
	ClientID string
	// InitialOffset is "oldest" or "newest"; it only matters for a group
	// without committed offsets.
	InitialOffset string
}

func newSaramaConfig(gc GroupConfig) (*sarama.Config, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_6_0_0
	cfg.ClientID = gc.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = "order-api"
	}
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Return.Errors = false
	cfg.Net.DialTimeout = 5 * time.Second

	switch gc.InitialOffset {
	case "", "oldest":
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	case "newest":
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	default:
		return nil, fmt.Errorf("kafka initial offset %q: want oldest or newest", gc.InitialOffset)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka config: %w", err)
	}
	return cfg, nil
}

// NewGroup joins the consumer group. A fresh group starts from the oldest
// offset unless told otherwise, so no status change is missed on first boot.
func NewGroup(gc GroupConfig) (sarama.ConsumerGroup, error) {
	cfg, err := newSaramaConfig(gc)
	if err != nil {
		return nil, err
	}
	return sarama.NewConsumerGroup(gc.Brokers, gc.GroupID, cfg)
}
