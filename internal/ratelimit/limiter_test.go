package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_EnforcesBudget(t *testing.T) {
	t.Parallel()

	limiter := NewInMemory(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if d := limiter.Allow(ctx, "1.2.3.4", 3); !d.Allowed {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	d := limiter.Allow(ctx, "1.2.3.4", 3)
	if d.Allowed {
		t.Fatalf("fourth request should be limited")
	}
	if d.ResetAt.Before(time.Now()) {
		t.Fatalf("reset time in the past: %v", d.ResetAt)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := NewInMemory(time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		limiter.Allow(ctx, "a", 5)
	}
	if d := limiter.Allow(ctx, "a", 5); d.Allowed {
		t.Fatalf("key a should be exhausted")
	}
	if d := limiter.Allow(ctx, "b", 5); !d.Allowed {
		t.Fatalf("key b should be unaffected")
	}
}

func TestMemoryLimiter_WindowSlides(t *testing.T) {
	t.Parallel()

	limiter := NewInMemory(50 * time.Millisecond)
	ctx := context.Background()

	if d := limiter.Allow(ctx, "ip", 1); !d.Allowed {
		t.Fatalf("first request limited")
	}
	if d := limiter.Allow(ctx, "ip", 1); d.Allowed {
		t.Fatalf("second request should be limited inside the window")
	}

	time.Sleep(60 * time.Millisecond)

	if d := limiter.Allow(ctx, "ip", 1); !d.Allowed {
		t.Fatalf("request after window should be allowed")
	}
}

func TestMemoryLimiter_RemainingCountsDown(t *testing.T) {
	t.Parallel()

	limiter := NewInMemory(time.Minute)
	ctx := context.Background()

	if d := limiter.Allow(ctx, "k", 2); d.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", d.Remaining)
	}
	if d := limiter.Allow(ctx, "k", 2); d.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", d.Remaining)
	}
}

func TestFormatRetryAfter_MinimumOneSecond(t *testing.T) {
	t.Parallel()

	d := Decision{ResetAt: time.Now().Add(-time.Second)}
	if got := FormatRetryAfter(d); got != "1" {
		t.Fatalf("retry-after = %q, want 1", got)
	}
}
