package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paysync-io/paysync/internal/pkg/config"
)

// Cache wraps the Redis client used for entitlement lookups. Losing the
// cache only costs extra DB reads, so connection failures are logged, not
// fatal.
type Cache struct {
	client *redis.Client
}

// Setup connects to the cache server and pings it once.
func Setup(cfg *config.Config) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.CacheAddr(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: could not connect to cache: %v", err)
	}
	return &Cache{client: client}
}

// Client exposes the underlying Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Set stores a value with an expiration.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key. Returns redis.Nil when absent.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// Delete removes a key; used to invalidate entitlement entries after a
// reconcile writes new subscription state.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
