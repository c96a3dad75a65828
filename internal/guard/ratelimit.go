package guard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meowbet/core/internal/domain"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Check(ctx context.Context, key string) domain.GuardResult
}

// RateLimiter implements a sliding window rate limiter.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with the given limit per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check returns a GuardResult indicating whether the key is within rate limits.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	// Remove expired entries
	entries := rl.windows[key]
	valid := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.windows[key] = valid
		return limited(rl.limit, rl.window)
	}

	rl.windows[key] = append(valid, now)
	return domain.GuardResult{Allowed: true}
}

// RedisRateLimiter is a fixed-window counter shared by every API replica:
// one INCR per request on a key bucketed by window, expiring with it.
type RedisRateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisRateLimiter creates a Redis-backed limiter.
func NewRedisRateLimiter(client redis.UniversalClient, limit int, window time.Duration, logger *slog.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window, logger: logger, now: time.Now}
}

// Check admits the request when Redis is unreachable; the ledger, not the
// limiter, protects balances.
func (rl *RedisRateLimiter) Check(ctx context.Context, key string) domain.GuardResult {
	bucket := rl.now().UnixNano() / int64(rl.window)
	redisKey := "ratelimit:" + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := rl.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Warn("rate limit check failed", "key", key, "error", err)
		return domain.GuardResult{Allowed: true}
	}

	if count.Val() > int64(rl.limit) {
		return limited(rl.limit, rl.window)
	}
	return domain.GuardResult{Allowed: true}
}

func limited(limit int, window time.Duration) domain.GuardResult {
	return domain.GuardResult{
		Allowed: false,
		Reason:  fmt.Sprintf("rate limit exceeded: %d/%s", limit, window),
		Guard:   "rate_limiter",
	}
}
