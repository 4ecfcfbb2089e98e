package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisOptions selects the redis server backing the banner cache and the
// event queue.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// Redis wraps the shared redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client with short timeouts. An unreachable server is
// logged, not fatal: the cache degrades to database reads and /healthz
// reports the outage.
func NewRedis(ctx context.Context, opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).WithField("addr", opts.Addr).Warn("redis not reachable")
	} else {
		log.WithField("addr", opts.Addr).Info("redis connected")
	}
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
