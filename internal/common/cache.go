package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/filedepot/filedepot/pkg/config"
)

// ErrCacheMiss is returned when a key or queue entry does not exist.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache wraps the Redis client for expiring keys and list-backed queues.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(cfg *config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// SetString stores a string value with expiration
func (c *Cache) SetString(ctx context.Context, key, value string, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// GetString retrieves a string value
func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get value: %w", err)
	}
	return value, nil
}

// Delete removes a key
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// LPush appends a value to the head of a list
func (c *Cache) LPush(ctx context.Context, key, value string) error {
	return c.client.LPush(ctx, key, value).Err()
}

// BRPop pops the tail of a list, blocking up to timeout. A quiet queue
// returns ErrCacheMiss rather than an error.
func (c *Cache) BRPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	result, err := c.client.BRPop(ctx, timeout, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to pop value: %w", err)
	}
	// BRPOP returns [key, value]
	return result[1], nil
}

// Alive reports whether Redis answers a ping.
func (c *Cache) Alive(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
