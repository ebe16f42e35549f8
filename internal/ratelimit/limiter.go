// Package ratelimit provides per-key request budgets over a rolling window.
// Counters live in process memory by default; when a redis address is
// configured the counters are shared across instances.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed   bool      // Whether the request may proceed.
	Remaining int       // Budget left in the current window.
	ResetAt   time.Time // When the window resets.
}

// Limiter answers whether a keyed request fits its budget.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) Decision
}

// MemoryLimiter is a sliding-window limiter backed by in-process state.
// Entries age out of the window on access and idle keys are swept so the
// map stays bounded.
type MemoryLimiter struct {
	window time.Duration

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewInMemory builds a sliding-window limiter for the given window.
func NewInMemory(window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		window:    window,
		hits:      make(map[string][]time.Time),
		lastSweep: time.Now(),
	}
}

// Allow records a hit for key and reports whether it fits the budget.
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int) Decision {
	now := time.Now()
	cutoff := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(now, cutoff)

	recent := pruneBefore(m.hits[key], cutoff)
	if len(recent) >= limit {
		m.hits[key] = recent
		return Decision{Allowed: false, Remaining: 0, ResetAt: recent[0].Add(m.window)}
	}

	recent = append(recent, now)
	m.hits[key] = recent
	return Decision{
		Allowed:   true,
		Remaining: limit - len(recent),
		ResetAt:   recent[0].Add(m.window),
	}
}

// sweepLocked drops keys whose every hit has aged out. Runs at most once
// per window to keep the common path cheap.
func (m *MemoryLimiter) sweepLocked(now time.Time, cutoff time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	m.lastSweep = now
	for key, hits := range m.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(m.hits, key)
		}
	}
}

func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(hits) && !hits[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return hits
	}
	return append([]time.Time(nil), hits[idx:]...)
}

// RedisLimiter is a fixed-window limiter backed by redis counters with TTL.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
}

// NewRedis builds a redis-backed limiter for the given window.
func NewRedis(client *redis.Client, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, window: window}
}

// Allow increments the window counter for key and checks it against limit.
// Redis failures fail open: limiting is protective, not load-bearing.
func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int) Decision {
	redisKey := "ratelimit:" + key

	count, errIncr := r.client.Incr(ctx, redisKey).Result()
	if errIncr != nil {
		log.WithError(errIncr).Warn("ratelimit: redis incr failed, allowing request")
		return Decision{Allowed: true, Remaining: limit, ResetAt: time.Now().Add(r.window)}
	}
	if count == 1 {
		if errExpire := r.client.Expire(ctx, redisKey, r.window).Err(); errExpire != nil {
			log.WithError(errExpire).Warn("ratelimit: redis expire failed")
		}
	}

	resetAt := time.Now().Add(r.window)
	if ttl, errTTL := r.client.TTL(ctx, redisKey).Result(); errTTL == nil && ttl > 0 {
		resetAt = time.Now().Add(ttl)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= int64(limit), Remaining: remaining, ResetAt: resetAt}
}

// FormatRetryAfter renders the Retry-After header value for a decision.
func FormatRetryAfter(d Decision) string {
	seconds := int(time.Until(d.ResetAt).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
