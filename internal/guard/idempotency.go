package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meowbet/core/internal/domain"
)

// StoreUnavailable is the Guard of a result refused because the shared
// idempotency store could not be reached.
const StoreUnavailable = "idempotency_store_unavailable"

// Deduper rejects a repeated idempotency key. Remove forgets a key so a
// request that failed before settling can be retried with it.
type Deduper interface {
	Check(ctx context.Context, key string) domain.GuardResult
	Remove(ctx context.Context, key string)
}

// IdempotencyGuard deduplicates requests by idempotency key.
type IdempotencyGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewIdempotencyGuard creates an in-memory guard that remembers keys for ttl.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Check returns whether the given key has already been processed.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.now()
	if at, ok := ig.seen[key]; ok && now.Sub(at) < ig.ttl {
		return duplicate()
	}

	ig.seen[key] = now
	if len(ig.seen)%1024 == 0 {
		ig.sweep(now)
	}
	return domain.GuardResult{Allowed: true}
}

// Remove deletes a key from the seen set (for retry scenarios).
func (ig *IdempotencyGuard) Remove(_ context.Context, key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}

func (ig *IdempotencyGuard) sweep(now time.Time) {
	for k, at := range ig.seen {
		if now.Sub(at) >= ig.ttl {
			delete(ig.seen, k)
		}
	}
}

// RedisIdempotencyGuard shares seen keys across replicas with SET NX.
type RedisIdempotencyGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisIdempotencyGuard creates a Redis-backed guard.
func NewRedisIdempotencyGuard(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisIdempotencyGuard {
	return &RedisIdempotencyGuard{client: client, ttl: ttl, logger: logger}
}

// Check rejects the request when Redis is unreachable: admitting it could
// settle the same bet twice.
func (ig *RedisIdempotencyGuard) Check(ctx context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}
	ok, err := ig.client.SetNX(ctx, "idem:"+key, 1, ig.ttl).Result()
	if err != nil {
		ig.logger.Error("idempotency check failed", "key", key, "error", err)
		return domain.GuardResult{Allowed: false, Reason: "idempotency store unavailable", Guard: StoreUnavailable}
	}
	if !ok {
		return duplicate()
	}
	return domain.GuardResult{Allowed: true}
}

// Remove forgets key.
func (ig *RedisIdempotencyGuard) Remove(ctx context.Context, key string) {
	if err := ig.client.Del(ctx, "idem:"+key).Err(); err != nil {
		ig.logger.Warn("idempotency remove failed", "key", key, "error", err)
	}
}

func duplicate() domain.GuardResult {
	return domain.GuardResult{
		Allowed: false,
		Reason:  "duplicate request: idempotency key already processed",
		Guard:   "idempotency",
	}
}
