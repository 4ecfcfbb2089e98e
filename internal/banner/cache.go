package banner

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// LiveCache holds the result of Repository.Live between banner writes.
// Entries are re-filtered by Resolve on every read, so a cached set only
// goes stale through writes, which invalidate it.
//
// A reader that misses must take the Generation before querying the
// repository and hand it to Set. Set refuses the write when an Invalidate
// ran in between, so a snapshot read before a write is never stored after
// that write's invalidation.
type LiveCache interface {
	Get(ctx context.Context) ([]Banner, bool, error)
	Generation(ctx context.Context) (int64, error)
	// Set reports whether banners were stored.
	Set(ctx context.Context, gen int64, banners []Banner) (bool, error)
	Invalidate(ctx context.Context) error
}

// RedisCache stores the live set as one JSON value next to a generation
// counter.
type RedisCache struct {
	client *redis.Client
	key    string
	genKey string
	ttl    time.Duration
}

// NewRedisCache creates a cache under key with the given ttl.
func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = "attendboard:banners:live"
	}
	return &RedisCache{client: client, key: key, genKey: key + ":gen", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) ([]Banner, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []Banner
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	return generation(ctx, c.client, c.genKey)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, g getter, key string) (int64, error) {
	gen, err := g.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set writes banners inside a WATCH on the generation key, so a concurrent
// Invalidate either happens first and is seen, or aborts the transaction.
func (c *RedisCache) Set(ctx context.Context, gen int64, banners []Banner) (bool, error) {
	raw, err := json.Marshal(banners)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := generation(ctx, tx, c.genKey)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, raw, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, c.genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate bumps the generation and drops the cached set atomically.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	return err
}
