// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache defines the caching interface. Values are opaque bytes so every
// backend round-trips them identically; use GetJSON/SetJSON for typed values.
type Cache interface {
	// Basic operations
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool

	// Advanced operations
	DeleteMultiple(ctx context.Context, keys []string) error
	DeletePattern(ctx context.Context, pattern string) error

	// Cache management
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (*CacheStats, error)
	Health(ctx context.Context) error
	Close() error
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits     int64         `json:"hits"`
	Misses   int64         `json:"misses"`
	Sets     int64         `json:"sets"`
	Deletes  int64         `json:"deletes"`
	Keys     int64         `json:"keys"`
	HitRatio float64       `json:"hit_ratio"`
	Uptime   time.Duration `json:"uptime"`

	UsedMemory       int64 `json:"used_memory,omitempty"`
	ConnectedClients int64 `json:"connected_clients,omitempty"`
	EvictedKeys      int64 `json:"evicted_keys"`
}

// ===============================
// CACHE CONFIGURATION
// ===============================

// Config holds cache configuration
type Config struct {
	Provider        string        `json:"provider"` // "memory", "redis"
	TTL             time.Duration `json:"ttl"`
	MaxKeys         int           `json:"max_keys"`
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// Redis configuration
	RedisURL      string `json:"redis_url"`
	RedisDB       int    `json:"redis_db"`
	RedisPassword string `json:"redis_password"`
	PoolSize      int    `json:"pool_size"`
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:        "memory",
		TTL:             15 * time.Minute,
		MaxKeys:         10000,
		CleanupInterval: 5 * time.Minute,
		PoolSize:        10,
	}
}

// ===============================
// FACTORY FUNCTION
// ===============================

// NewCache creates a new cache instance based on configuration
func NewCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(config.Provider) {
	case "redis":
		return NewRedisCache(config, logger)
	case "memory", "":
		logger.Info("Using in-memory cache")
		return NewMemoryCache(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", config.Provider)
	}
}

// ===============================
// TYPED HELPERS
// ===============================

// GetJSON reads and decodes a cached value. Undecodable entries count as misses.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var zero T
	data, found := c.Get(ctx, key)
	if !found {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false
	}
	return value, true
}

// SetJSON encodes and stores a value
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}

// GetOrLoad returns the cached value for key or calls load and caches its result.
// Cache write failures are logged and never fail the call.
func GetOrLoad[T any](ctx context.Context, c Cache, logger *zap.Logger, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if value, found := GetJSON[T](ctx, c, key); found {
		logger.Debug("Cache hit", zap.String("key", key))
		return value, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if err := SetJSON(ctx, c, key, value, ttl); err != nil {
		logger.Warn("Failed to cache result",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	return value, nil
}
