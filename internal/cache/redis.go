package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// Cache errors
var (
	ErrMiss     = errors.New("key not found in cache")
	ErrDisabled = errors.New("cache is disabled")
)

// RedisCache provides caching of provider responses using Redis
type RedisCache struct {
	client  *redis.Client
	enabled bool
}

// Disabled returns a cache that misses on every read and drops every write
func Disabled() *RedisCache {
	return &RedisCache{enabled: false}
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{
		client:  client,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache is backed by Redis
func (c *RedisCache) Enabled() bool {
	return c.enabled
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	if !c.enabled {
		return ErrDisabled
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrMiss
		}
		return errors.Wrap(err, "failed to get value from Redis")
	}

	if err := json.Unmarshal(data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached value")
	}
	return nil
}

// Set stores a value in cache with optional expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if !c.enabled {
		return ErrDisabled
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value for caching")
	}

	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return errors.Wrap(err, "failed to set value in Redis")
	}
	return nil
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// WeatherKey generates a cache key for the weather at a coordinate.
// Coordinates are rounded to about 1km so nearby facilities share an entry.
func WeatherKey(c models.Coordinate) string {
	return fmt.Sprintf("weather:%.2f:%.2f", c.Lat, c.Lon)
}

// RouteKey generates a cache key for a primary-provider route
func RouteKey(origin, dest models.Coordinate) string {
	return fmt.Sprintf("route:%.5f,%.5f:%.5f,%.5f", origin.Lat, origin.Lon, dest.Lat, dest.Lon)
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if !c.enabled || c.client == nil {
		return nil
	}
	return c.client.Close()
}
