package cache

import (
	"context"
	"time"

	"github.com/aq2208/gorder-oms/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore remembers revoked token ids until the token would have
// expired on its own.
type RedisSessionStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, now: time.Now}
}

func revokedKey(tokenID string) string { return "session:revoked:" + tokenID }

func (s *RedisSessionStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedKey(tokenID), "1", ttl).Err()
}

func (s *RedisSessionStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ usecase.SessionStore = (*RedisSessionStore)(nil)
