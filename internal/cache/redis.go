// Package cache keeps reference data (catalogs, location lookups) in Redis.
// A nil *Cache is valid and behaves as an always-missing cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"intake/internal/logging"
)

const keyPrefix = "intake:"

// Cache is a JSON value cache on top of a Redis client
type Cache struct {
	client *redis.Client
}

// New connects to Redis at addr and verifies the connection
func New(ctx context.Context, addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return &Cache{client: client}, nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Key builds a namespaced key from parts, normalizing case and spaces
func Key(parts ...string) string {
	clean := make([]string, len(parts))
	for i, p := range parts {
		clean[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(p)), " ", "_")
	}
	return keyPrefix + strings.Join(clean, ":")
}

// GetJSON loads key into dest. It reports false on a miss or any Redis error;
// errors are logged, never returned, so callers fall through to the origin.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("Redis GET failed")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
		c.client.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value under key with ttl (0 keeps it forever)
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("Redis SET failed")
	}
}

// Delete removes keys
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close releases the client
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
