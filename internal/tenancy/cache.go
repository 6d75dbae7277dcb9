package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

const defaultCacheTTL = 5 * time.Minute

// CachedResolver serves tenants from Redis and falls through to the
// underlying resolver on a miss. Unknown tenants are not cached so a
// freshly created tenant is visible on the next webhook.
type CachedResolver struct {
	next   Resolver
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedResolver wraps next with a Redis read-through cache.
func NewCachedResolver(next Resolver, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedResolver {
	if next == nil {
		panic("tenancy: resolver cannot be nil")
	}
	if client == nil {
		panic("tenancy: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedResolver{next: next, redis: client, ttl: ttl, logger: logger}
}

func cacheKey(businessNumber string) string {
	return fmt.Sprintf("tenant:%s", BusinessKey(businessNumber))
}

// Resolve implements Resolver.
func (c *CachedResolver) Resolve(ctx context.Context, businessNumber string) (*Tenant, error) {
	if BusinessKey(businessNumber) == "" {
		return nil, ErrTenantNotFound
	}
	key := cacheKey(businessNumber)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t Tenant
		if jsonErr := json.Unmarshal(data, &t); jsonErr == nil {
			return &t, nil
		}
		c.logger.Warn("tenancy: dropping undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("tenancy: cache read failed", "error", err)
	}

	tenant, err := c.next.Resolve(ctx, businessNumber)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(tenant); err == nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("tenancy: cache write failed", "error", err)
		}
	}
	return tenant, nil
}

// Invalidate implements Invalidator.
func (c *CachedResolver) Invalidate(ctx context.Context, businessNumber string) error {
	if err := c.redis.Del(ctx, cacheKey(businessNumber)).Err(); err != nil {
		return fmt.Errorf("tenancy: invalidate cache: %w", err)
	}
	return nil
}
