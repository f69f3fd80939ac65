// Package cache manages the Redis connection backing the mastery
// result cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edulytic/mastery-service/internal/platform/config"
)

const defaultResultTTLMinutes = 15

// Cache wraps a Redis client plus the service's result TTL.
type Cache struct {
	Client *redis.Client

	resultTTL time.Duration
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New creates a cache client from service settings.
func New(ctx context.Context, cfg config.CacheConfig) (*Cache, error) {
	opts, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client, resultTTL: resultTTL(cfg)}, nil
}

// resultTTL converts the configured TTL minutes, falling back to the
// default when unset or nonsensical.
func resultTTL(cfg config.CacheConfig) time.Duration {
	minutes := cfg.ResultTTL
	if minutes <= 0 {
		minutes = defaultResultTTLMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ResultTTL returns how long cached mastery results stay fresh.
func (c *Cache) ResultTTL() time.Duration {
	return c.resultTTL
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
