package spend

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "estateloyalty:spend:"

// kvStore is the subset of *redis.Client the cache needs.
type kvStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Invalidator is implemented by aggregators that hold totals between calls.
type Invalidator interface {
	Invalidate(ctx context.Context, customerID string) error
}

// CachedAggregator keeps spend totals in Redis for ttl. Redis failures
// fall through to the wrapped aggregator.
type CachedAggregator struct {
	next  Aggregator
	store kvStore
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedAggregator(next Aggregator, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedAggregator {
	return newCachedAggregator(next, client, ttl, log)
}

func newCachedAggregator(next Aggregator, store kvStore, ttl time.Duration, log *zap.Logger) *CachedAggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedAggregator{
		next:  next,
		store: store,
		ttl:   ttl,
		log:   log.Named("spend.cache"),
	}
}

func (c *CachedAggregator) TotalSpent(ctx context.Context, customerID string) (float64, error) {
	key := cacheKey(customerID)

	cached, err := c.store.Get(ctx, key).Result()
	switch {
	case err == nil:
		if total, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
			return total, nil
		}
		c.log.Warn("discarding unreadable cached spend", zap.String("customer_id", customerID))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("spend cache read failed", zap.Error(err))
	}

	total, err := c.next.TotalSpent(ctx, customerID)
	if err != nil {
		return 0, err
	}

	if err := c.store.Set(ctx, key, strconv.FormatFloat(total, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.log.Warn("spend cache write failed", zap.Error(err))
	}
	return total, nil
}

// Invalidate drops the cached total for a customer.
func (c *CachedAggregator) Invalidate(ctx context.Context, customerID string) error {
	return c.store.Del(ctx, cacheKey(customerID)).Err()
}

func cacheKey(customerID string) string {
	return cacheKeyPrefix + strings.ToLower(strings.TrimSpace(customerID))
}
