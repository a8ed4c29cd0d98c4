package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, cfg), mr
}

func TestSignInLimiterBlocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, Config{
		MaxSignInAttempts:      3,
		SignInCooldownDuration: time.Minute,
	})

	for i := 0; i < 3; i++ {
		if err := limiter.CheckSignIn(ctx, "alice", ""); err != nil {
			t.Fatalf("check %d unexpectedly failed: %v", i, err)
		}
		if err := limiter.IncrementSignIn(ctx, "alice", ""); err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
	}

	if err := limiter.IncrementSignIn(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited past the budget, got %v", err)
	}
	if err := limiter.CheckSignIn(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected CheckSignIn to deny, got %v", err)
	}

	// Other identifiers keep their own budget.
	if err := limiter.CheckSignIn(ctx, "bob", ""); err != nil {
		t.Fatalf("unrelated identifier blocked: %v", err)
	}
}

func TestSignInLimiterIPThrottle(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, Config{
		EnableIPThrottle:       true,
		MaxSignInAttempts:      2,
		SignInCooldownDuration: time.Minute,
	})

	// Distinct identifiers from the same IP share the IP budget.
	for i := 0; i < 3; i++ {
		_ = limiter.IncrementSignIn(ctx, "victim-"+string(rune('a'+i)), "10.0.0.9")
	}

	if err := limiter.CheckSignIn(ctx, "fresh-identifier", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP throttle to deny, got %v", err)
	}
	if err := limiter.CheckSignIn(ctx, "fresh-identifier", "10.0.0.10"); err != nil {
		t.Fatalf("different IP blocked: %v", err)
	}
}

func TestResetSignInClearsBudget(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, Config{
		MaxSignInAttempts:      1,
		SignInCooldownDuration: time.Minute,
	})

	if err := limiter.IncrementSignIn(ctx, "alice", ""); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := limiter.IncrementSignIn(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected budget exhausted, got %v", err)
	}

	if err := limiter.ResetSignIn(ctx, "alice", ""); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if err := limiter.CheckSignIn(ctx, "alice", ""); err != nil {
		t.Fatalf("expected clean slate after reset, got %v", err)
	}

	attempts, err := limiter.GetSignInAttempts(ctx, "alice")
	if err != nil {
		t.Fatalf("GetSignInAttempts failed: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", attempts)
	}
}

func TestSignInWindowExpires(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, Config{
		MaxSignInAttempts:      1,
		SignInCooldownDuration: time.Minute,
	})

	_ = limiter.IncrementSignIn(ctx, "alice", "")
	if err := limiter.IncrementSignIn(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected budget exhausted, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := limiter.CheckSignIn(ctx, "alice", ""); err != nil {
		t.Fatalf("expected fresh window after cooldown, got %v", err)
	}
}

func TestRefreshThrottle(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, Config{
		EnableRefreshThrottle:   true,
		MaxRefreshAttempts:      2,
		RefreshCooldownDuration: time.Minute,
	})

	for i := 0; i < 2; i++ {
		if err := limiter.CheckRefresh(ctx, "acct-1"); err != nil {
			t.Fatalf("refresh %d unexpectedly denied: %v", i, err)
		}
	}
	if err := limiter.CheckRefresh(ctx, "acct-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected refresh throttle to deny, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := limiter.CheckRefresh(ctx, "acct-1"); err != nil {
		t.Fatalf("expected fresh refresh window, got %v", err)
	}
}

func TestRefreshThrottleDisabled(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, Config{
		EnableRefreshThrottle: false,
	})

	for i := 0; i < 50; i++ {
		if err := limiter.CheckRefresh(ctx, "acct-1"); err != nil {
			t.Fatalf("disabled throttle denied refresh: %v", err)
		}
	}
}

func TestLimiterRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, Config{
		MaxSignInAttempts:      1,
		SignInCooldownDuration: time.Minute,
	})
	mr.Close()

	if err := limiter.IncrementSignIn(ctx, "alice", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
