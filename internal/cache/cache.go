// Package cache is the read-through cache guarding post read paths, with
// targeted invalidation run synchronously after every write.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-platform/pkg/errs"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

const listingPattern = "posts:*"

// PostCache caches single posts and paginated listings in Redis. Expiration
// is enforced by the store; a key past its TTL is simply absent.
type PostCache struct {
	client     *redis.Client
	postTTL    time.Duration
	listingTTL time.Duration
}

// New builds a cache with per-resource-class TTLs. Single posts can be cached
// longer than listings, which churn on every write.
func New(client *redis.Client, postTTL, listingTTL time.Duration) *PostCache {
	return &PostCache{client: client, postTTL: postTTL, listingTTL: listingTTL}
}

// PostKey derives the exact-match key for one post.
func PostKey(postID string) string { return "post:" + postID }

// ListingKey derives the key for one page of the post listing.
func ListingKey(page, limit int) string { return fmt.Sprintf("posts:%d:%d", page, limit) }

// Get loads a cached snapshot into dest. The second return is true on a hit;
// a store failure is reported so callers can fall back to the source of truth.
func (c *PostCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.KindStoreUnavailable, "cache.Get", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// SetPost stores a single-post snapshot.
func (c *PostCache) SetPost(ctx context.Context, key string, value any) error {
	return c.set(ctx, key, value, c.postTTL)
}

// SetListing stores one listing page.
func (c *PostCache) SetListing(ctx context.Context, key string, value any) error {
	return c.set(ctx, key, value, c.listingTTL)
}

func (c *PostCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return errs.Wrap(errs.KindValidation, "cache.Set", err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return errs.Wrap(errs.KindStoreUnavailable, "cache.Set", err)
	}
	return nil
}

// InvalidatePost removes the post's exact key and every listing key. Listing
// invalidation is a coarse sweep: membership per page is not tracked, and
// listings are cheap to recompute, so correctness wins over hit rate.
func (c *PostCache) InvalidatePost(ctx context.Context, postID string) error {
	if err := c.client.Del(ctx, PostKey(postID)).Err(); err != nil {
		return errs.Wrap(errs.KindStoreUnavailable, "cache.InvalidatePost", err)
	}

	iter := c.client.Scan(ctx, 0, listingPattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errs.Wrap(errs.KindStoreUnavailable, "cache.InvalidatePost", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return errs.Wrap(errs.KindStoreUnavailable, "cache.InvalidatePost", err)
		}
	}

	logger.Debug("cache invalidated",
		zap.String("post_id", postID), zap.Int("listing_keys", len(keys)))
	return nil
}
