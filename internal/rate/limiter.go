package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxSignInAttempts       int
	SignInCooldownDuration  time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// Limiter enforces per-identifier and per-IP limits for sign-in, and a
// per-account limit for refresh, using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckSignIn checks whether the identifier+IP pair is within the sign-in
// attempt budget. Returns an error if rate-limited.
func (l *Limiter) CheckSignIn(ctx context.Context, identifier, ip string) error {
	if err := l.checkCounter(ctx, signInKey(identifier), l.config.MaxSignInAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, signInIPKey(ip), l.config.MaxSignInAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementSignIn records a failed sign-in attempt for the identifier+IP pair.
func (l *Limiter) IncrementSignIn(ctx context.Context, identifier, ip string) error {
	count, err := l.incrementWithTTL(ctx, signInKey(identifier), l.config.SignInCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSignInAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, signInIPKey(ip), l.config.SignInCooldownDuration)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxSignInAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetSignIn clears the failed sign-in counter for the identifier+IP pair.
// Called after a successful sign-in.
func (l *Limiter) ResetSignIn(ctx context.Context, identifier, ip string) error {
	keys := []string{signInKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, signInIPKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// CheckRefresh enforces the refresh budget by incrementing the per-account
// counter and applying the cooldown TTL.
func (l *Limiter) CheckRefresh(ctx context.Context, accountID string) error {
	if !l.config.EnableRefreshThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, refreshKey(accountID), l.config.RefreshCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}

	return nil
}

// GetSignInAttempts returns the current attempt counter for an identifier.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) GetSignInAttempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, signInKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func signInKey(identifier string) string { return "as:" + identifier }
func signInIPKey(ip string) string       { return "asi:" + ip }
func refreshKey(accountID string) string { return "ar:" + accountID }
