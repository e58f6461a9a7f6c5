package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func newTestCache(t *testing.T) (*PostCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Hour, 5*time.Minute), mr
}

func TestGetMissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var got snapshot
	hit, err := c.Get(ctx, PostKey("p1"), &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetPost(ctx, PostKey("p1"), snapshot{ID: "p1", Content: "hello"}))

	hit, err = c.Get(ctx, PostKey("p1"), &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, snapshot{ID: "p1", Content: "hello"}, got)
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetPost(ctx, PostKey("p1"), snapshot{ID: "p1"}))
	require.NoError(t, c.SetListing(ctx, ListingKey(1, 10), []snapshot{{ID: "p1"}}))

	mr.FastForward(5*time.Minute + time.Second)

	var got snapshot
	hit, err := c.Get(ctx, ListingKey(1, 10), &got)
	require.NoError(t, err)
	assert.False(t, hit, "listing must expire after its shorter ttl")

	hit, err = c.Get(ctx, PostKey("p1"), &got)
	require.NoError(t, err)
	assert.True(t, hit, "single post outlives the listing ttl")

	mr.FastForward(time.Hour)
	hit, err = c.Get(ctx, PostKey("p1"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCorruptEntryTreatedAsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(PostKey("p1"), "{not json"))

	var got snapshot
	hit, err := c.Get(ctx, PostKey("p1"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists(PostKey("p1")), "corrupt entry is dropped")
}

func TestInvalidatePostSweepsListings(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetPost(ctx, PostKey("p1"), snapshot{ID: "p1"}))
	require.NoError(t, c.SetPost(ctx, PostKey("p2"), snapshot{ID: "p2"}))
	require.NoError(t, c.SetListing(ctx, ListingKey(1, 10), []snapshot{{ID: "p1"}}))
	require.NoError(t, c.SetListing(ctx, ListingKey(2, 10), []snapshot{{ID: "p2"}}))
	require.NoError(t, mr.Set("session:abc", "untouched"))

	require.NoError(t, c.InvalidatePost(ctx, "p1"))

	assert.False(t, mr.Exists(PostKey("p1")))
	assert.False(t, mr.Exists(ListingKey(1, 10)))
	assert.False(t, mr.Exists(ListingKey(2, 10)))
	assert.True(t, mr.Exists(PostKey("p2")), "other posts keep their entries")
	assert.True(t, mr.Exists("session:abc"), "non-listing keys keep their entries")
}

func TestGetReportsStoreFailure(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	var got snapshot
	hit, err := c.Get(context.Background(), PostKey("p1"), &got)
	assert.False(t, hit)
	assert.Error(t, err)
}
