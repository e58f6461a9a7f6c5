package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(3002)
	require.NoError(t, err)

	assert.Equal(t, 3002, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.GeneralLimit)
	assert.Equal(t, time.Second, cfg.GeneralWindow)
	assert.Equal(t, 100, cfg.SensitiveLimit)
	assert.Equal(t, 15*time.Minute, cfg.SensitiveWindow)
	assert.Equal(t, 50, cfg.RegisterLimit)
	assert.Equal(t, time.Hour, cfg.PostCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.ListingCacheTTL)
	assert.Equal(t, "http://localhost:3002", cfg.PostServiceURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SOCIAL_PORT", "9999")
	t.Setenv("SOCIAL_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("SOCIAL_GENERAL_LIMIT", "25")
	t.Setenv("SOCIAL_POST_CACHE_TTL", "30m")

	cfg, err := Load(3002)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 25, cfg.GeneralLimit)
	assert.Equal(t, 30*time.Minute, cfg.PostCacheTTL)
}
