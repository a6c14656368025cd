package trivia

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// Cache wraps a Provider with a Redis read-through cache. Category listings
// and details are immutable upstream, so entries are only ever expired by TTL.
type Cache struct {
	base  Provider
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Provider. A nil client disables caching.
func NewCache(base Provider, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("trivia.NewCache: base provider is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
}

func (c *Cache) ListCategories(ctx context.Context, count, offset int) ([]CategorySummary, error) {
	key := categoriesCacheKey(count, offset)

	var cached []CategorySummary
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	out, err := c.base.ListCategories(ctx, count, offset)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, out)
	return out, nil
}

func (c *Cache) GetCategory(ctx context.Context, id int) (CategoryDetail, error) {
	key := categoryCacheKey(id)

	var cached CategoryDetail
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	out, err := c.base.GetCategory(ctx, id)
	if err != nil {
		return CategoryDetail{}, err
	}

	c.store(ctx, key, out)
	return out, nil
}

func (c *Cache) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the provider without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}

	if err := sonic.Unmarshal(data, v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}

	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}

	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}

	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func categoriesCacheKey(count, offset int) string {
	return "trivia:categories:" + strconv.Itoa(count) + ":" + strconv.Itoa(offset)
}

func categoryCacheKey(id int) string {
	return "trivia:category:" + strconv.Itoa(id)
}
