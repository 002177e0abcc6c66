package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"incorpapi/internal/config"
)

// DispatchLock claims the right to send one registration's warning for one day.
type DispatchLock interface {
	// Claim returns true for the first caller per (id, day).
	Claim(ctx context.Context, id, day string) (bool, error)
	// Release gives the claim back after a failed send.
	Release(ctx context.Context, id, day string) error
}

const claimTTL = 36 * time.Hour

// RedisLock implements DispatchLock with SET NX.
type RedisLock struct {
	client redis.Cmdable
	prefix string
}

func NewRedisLock(client redis.Cmdable) *RedisLock {
	return &RedisLock{client: client, prefix: "incorp:expiry-sent"}
}

func (l *RedisLock) key(id, day string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, day, id)
}

func (l *RedisLock) Claim(ctx context.Context, id, day string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(id, day), time.Now().UTC().Format(time.RFC3339), claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim expiry dispatch: %w", err)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context, id, day string) error {
	if err := l.client.Del(ctx, l.key(id, day)).Err(); err != nil {
		return fmt.Errorf("release expiry dispatch: %w", err)
	}
	return nil
}

// NewRedisClient connects to Redis. It returns nil when no URL is configured.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
