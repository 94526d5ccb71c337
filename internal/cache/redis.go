package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache backs the response cache with a Redis server.
type RedisCache struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOptions configures the Redis connection. URL is a redis:// URL;
// Password and DB override whatever the URL carries when set.
type RedisOptions struct {
	URL      string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewRedis creates a Redis-backed cache. It does not ping; callers decide
// whether a dead Redis is fatal or a reason to degrade.
func NewRedis(opts RedisOptions) (*RedisCache, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.Password != "" {
		ropts.Password = opts.Password
	}
	if opts.DB != 0 {
		ropts.DB = opts.DB
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ropts.DialTimeout = timeout
	ropts.ReadTimeout = timeout
	ropts.WriteTimeout = timeout
	return &RedisCache{client: redis.NewClient(ropts), timeout: timeout}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Set(ctx, key, val, ttl).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }
