package usecase

import (
	"context"
	"log/slog"
	"time"
)

// Publisher delivers one outbox payload downstream.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

func (c *RelayConfig) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Minute
	}
}

// OutboxRelay drains due outbox rows to a Publisher. Failed publishes are
// retried with exponential backoff until MaxAttempts, then parked as failed.
type OutboxRelay struct {
	store Store
	pub   Publisher
	cfg   RelayConfig
	log   *slog.Logger
	now   Clock
}

func NewOutboxRelay(store Store, pub Publisher, cfg RelayConfig, log *slog.Logger) *OutboxRelay {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}
	return &OutboxRelay{store: store, pub: pub, cfg: cfg, log: log, now: time.Now}
}

func (r *OutboxRelay) WithClock(c Clock) *OutboxRelay {
	r.now = c
	return r
}

// Run blocks until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	t := time.NewTicker(r.cfg.PollInterval)
	defer t.Stop()
	for {
		if _, err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("outbox drain failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// DrainOnce publishes one batch and returns how many rows were sent.
func (r *OutboxRelay) DrainOnce(ctx context.Context) (int, error) {
	out := r.store.Repos().Outbox
	recs, err := out.FetchDue(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range recs {
		if err := r.pub.Publish(ctx, rec.Topic, rec.Payload); err != nil {
			attempts := rec.Attempts + 1
			if attempts >= r.cfg.MaxAttempts {
				r.log.Error("outbox record parked", "id", rec.ID, "topic", rec.Topic, "attempts", attempts, "err", err)
				if err := out.MarkFailed(ctx, rec.ID, attempts); err != nil {
					return sent, err
				}
				continue
			}
			r.log.Warn("outbox publish failed", "id", rec.ID, "topic", rec.Topic, "attempts", attempts, "err", err)
			if err := out.MarkRetry(ctx, rec.ID, attempts, r.now().Add(r.backoff(attempts))); err != nil {
				return sent, err
			}
			continue
		}
		if err := out.MarkSent(ctx, rec.ID, r.now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (r *OutboxRelay) backoff(attempts int) time.Duration {
	d := r.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	return d
}
