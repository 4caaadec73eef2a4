package cache

import (
	"context"
	"testing"
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCache(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	ctx := context.Background()
	assert.ErrorIs(t, c.Set(ctx, "k", 1, time.Minute), ErrDisabled)

	var out int
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrDisabled)
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	_, err := NewRedisCache(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestKeys(t *testing.T) {
	pune := models.Coordinate{Lat: 18.5204, Lon: 73.8567}
	mumbai := models.Coordinate{Lat: 19.0760, Lon: 72.8777}

	assert.Equal(t, "weather:18.52:73.86", WeatherKey(pune))
	assert.Equal(t, "route:19.07600,72.87770:18.52040,73.85670", RouteKey(mumbai, pune))
	assert.NotEqual(t, RouteKey(mumbai, pune), RouteKey(pune, mumbai))
}
