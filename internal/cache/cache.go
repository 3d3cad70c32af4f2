package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Cache is a small redis-backed byte cache for hot read endpoints
// (blog listings). Failures degrade to a miss; callers never depend on it.
type Cache struct {
	redisdb *redis.Client
	ttl     time.Duration
}

func New(cfg Config, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Cache{redisdb: redisdb, ttl: ttl}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.redisdb.Close()
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.redisdb.Get(ctx, key).Bytes()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}

		return nil, err
	}

	return b, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte) error {
	return c.redisdb.Set(ctx, key, val, c.ttl).Err()
}

// InvalidatePrefix drops all keys under a prefix (e.g. on blog writes).
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := c.redisdb.Scan(ctx, 0, prefix+"*", 100).Iterator()

	for iter.Next(ctx) {
		if err := c.redisdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}

	return iter.Err()
}
