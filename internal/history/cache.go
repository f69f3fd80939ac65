package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultResultTTL = 15 * time.Minute

// ResultCache keeps the most recent mastery map per student in Redis so
// repeated reads skip the model round-trip.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache creates a cache with the given TTL (0 uses the
// default of 15 minutes).
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	return &ResultCache{client: client, ttl: ttl}
}

func resultKey(userID string) string {
	return "mastery:result:" + userID
}

// Get returns the cached mastery map for a student, or (nil, false)
// on a miss.
func (c *ResultCache) Get(ctx context.Context, userID string) (map[string]float64, bool, error) {
	data, err := c.client.Get(ctx, resultKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var scores map[string]float64
	if err := json.Unmarshal(data, &scores); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return scores, true, nil
}

// Set stores a mastery map for a student.
func (c *ResultCache) Set(ctx context.Context, userID string, scores map[string]float64) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, resultKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops a student's cached result, used when new
// interactions arrive.
func (c *ResultCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, resultKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
