// Package ratelimit implements the two admission-control tiers: a general
// per-identity limiter applied to all traffic and a stricter fixed-window
// limiter for sensitive routes. Both count in a shared Redis store so limits
// hold across restarts and horizontally-scaled instances; atomicity relies on
// the store's INCR/EXPIRE semantics, not client-side locking.
//
// Store-unavailability policy is explicit per tier: the general limiter fails
// OPEN (availability first, degraded to an in-process token bucket), the
// sensitive limiter fails CLOSED (auth endpoints stay protected).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/social-platform/pkg/errs"
	"github.com/d60-Lab/social-platform/pkg/logger"
)

// GeneralLimiter is the first gate every request passes. Fixed window per
// client identity, typically a few requests per second.
type GeneralLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration

	// Fallback buckets shave bursts while the counting store is down.
	mu       sync.Mutex
	fallback map[string]*rate.Limiter
}

// NewGeneral builds the general limiter: limit requests per window.
func NewGeneral(client *redis.Client, limit int, window time.Duration) *GeneralLimiter {
	return &GeneralLimiter{
		client:   client,
		limit:    limit,
		window:   window,
		fallback: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the identity may proceed. Store failures degrade to a
// local per-identity token bucket rather than rejecting (fail-open).
func (l *GeneralLimiter) Allow(ctx context.Context, identity string) bool {
	count, err := incrWindow(ctx, l.client, "rl:general:"+identity, l.window)
	if err != nil {
		logger.Warn("rate-limit store unavailable, general limiter failing open",
			zap.Error(err))
		return l.allowLocal(identity)
	}
	return count <= int64(l.limit)
}

func (l *GeneralLimiter) allowLocal(identity string) bool {
	l.mu.Lock()
	lim, ok := l.fallback[identity]
	if !ok {
		per := rate.Every(l.window / time.Duration(l.limit))
		lim = rate.NewLimiter(per, l.limit)
		l.fallback[identity] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// WindowLimiter is the sensitive-route tier: a long fixed window with a small
// quota, e.g. 50 registrations per 15 minutes.
type WindowLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewWindow builds a sensitive-route limiter. prefix namespaces the counters
// so different routes do not share quota.
func NewWindow(client *redis.Client, prefix string, limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow reports whether the identity may proceed. A store failure is returned
// as an error; the caller rejects (fail-closed).
func (l *WindowLimiter) Allow(ctx context.Context, identity string) (bool, error) {
	count, err := incrWindow(ctx, l.client, "rl:"+l.prefix+":"+identity, l.window)
	if err != nil {
		return false, errs.Wrap(errs.KindStoreUnavailable, "ratelimit.Allow", err)
	}
	return count <= int64(l.limit), nil
}

// incrWindow atomically bumps the window counter, arming the expiry when the
// counter is created. Counters are ephemeral and recreated per window.
func incrWindow(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, error) {
	pipe := client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
