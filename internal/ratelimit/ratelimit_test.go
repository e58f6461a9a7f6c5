package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestGeneralLimiterBlocksAtLimit(t *testing.T) {
	client, _ := newTestRedis(t)
	l := NewGeneral(client, 3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "1.2.3.4"), "request %d within quota", i+1)
	}
	assert.False(t, l.Allow(ctx, "1.2.3.4"))
}

func TestGeneralLimiterIsolatesIdentities(t *testing.T) {
	client, _ := newTestRedis(t)
	l := NewGeneral(client, 1, time.Second)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "1.2.3.4"))
	assert.False(t, l.Allow(ctx, "1.2.3.4"))
	assert.True(t, l.Allow(ctx, "5.6.7.8"), "a different identity has its own window")
}

func TestGeneralLimiterWindowResets(t *testing.T) {
	client, mr := newTestRedis(t)
	l := NewGeneral(client, 1, time.Second)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "1.2.3.4"))
	assert.False(t, l.Allow(ctx, "1.2.3.4"))

	mr.FastForward(time.Second + 10*time.Millisecond)
	assert.True(t, l.Allow(ctx, "1.2.3.4"))
}

func TestGeneralLimiterFailsOpenOnStoreLoss(t *testing.T) {
	client, mr := newTestRedis(t)
	l := NewGeneral(client, 2, time.Second)
	ctx := context.Background()

	mr.Close()

	// The local fallback bucket still admits up to the burst size, so traffic
	// keeps flowing while the shared store is down.
	assert.True(t, l.Allow(ctx, "1.2.3.4"))
	assert.True(t, l.Allow(ctx, "1.2.3.4"))
	assert.False(t, l.Allow(ctx, "1.2.3.4"), "fallback bucket still caps bursts")
}

func TestWindowLimiterBlocksAtLimit(t *testing.T) {
	client, _ := newTestRedis(t)
	l := NewWindow(client, "register", 2, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWindowLimiterPrefixesAreIndependent(t *testing.T) {
	client, _ := newTestRedis(t)
	register := NewWindow(client, "register", 1, 15*time.Minute)
	gateway := NewWindow(client, "gateway", 1, 15*time.Minute)
	ctx := context.Background()

	ok, err := register.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = register.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = gateway.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "quotas are namespaced per route prefix")
}

func TestWindowLimiterWindowResets(t *testing.T) {
	client, mr := newTestRedis(t)
	l := NewWindow(client, "register", 1, 15*time.Minute)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(15*time.Minute + time.Second)

	ok, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindowLimiterFailsClosedOnStoreLoss(t *testing.T) {
	client, mr := newTestRedis(t)
	l := NewWindow(client, "register", 10, 15*time.Minute)

	mr.Close()

	ok, err := l.Allow(context.Background(), "1.2.3.4")
	assert.False(t, ok)
	assert.Error(t, err)
}
