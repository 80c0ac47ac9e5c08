package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const ingestKeyPrefix = "capture:event:"

// IdempotencyGuard decides whether a capture event id is seen for the
// first time. Guards are advisory: a failure to consult the guard must not
// block ingest.
type IdempotencyGuard interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

// RedisGuard implements IdempotencyGuard on a shared redis instance so
// retried capture batches are dropped across process restarts.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a guard. Keys expire after ttl; a retry arriving
// later than that is treated as a new delivery.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// FirstDelivery atomically claims the event id. It returns true exactly
// once per id within the TTL window.
func (g *RedisGuard) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	return g.client.SetNX(ctx, ingestKeyPrefix+eventID, 1, g.ttl).Result()
}

var _ IdempotencyGuard = (*RedisGuard)(nil)
