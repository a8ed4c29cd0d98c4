package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionExpired is the terminal refresh outcome: the refresh credential
// was presented and rejected, so no amount of retrying will revive the
// session. Callers should clear local state and surface a sign-in.
var ErrSessionExpired = errors.New("session expired")

// RefreshFunc performs one refresh round-trip and returns the new access
// token. It must return [ErrSessionExpired] (possibly wrapped) for terminal
// rejections and any other error for retryable ones.
type RefreshFunc func(ctx context.Context) (string, error)

const defaultRefreshTimeout = 15 * time.Second

type attempt struct {
	done  chan struct{}
	token string
	err   error
}

// Coordinator collapses concurrent refresh demands into a single in-flight
// attempt. Safe for concurrent use.
type Coordinator struct {
	refresh RefreshFunc
	timeout time.Duration

	mu       sync.Mutex
	inflight *attempt
}

// NewCoordinator wraps refresh with single-flight semantics. timeout bounds
// each underlying attempt; zero means a 15 second default.
func NewCoordinator(refresh RefreshFunc, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	return &Coordinator{
		refresh: refresh,
		timeout: timeout,
	}
}

// Refresh returns a fresh access token, joining the in-flight attempt if one
// exists or starting one otherwise. Every waiter on the same attempt sees
// the same outcome.
//
// Cancelling ctx abandons the wait, not the attempt; the attempt runs on a
// detached context so an impatient caller cannot poison the result for the
// others.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	a := c.inflight
	if a == nil {
		a = &attempt{done: make(chan struct{})}
		c.inflight = a
		go c.run(a)
	}
	c.mu.Unlock()

	select {
	case <-a.done:
		return a.token, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) run(a *attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	a.token, a.err = c.refresh(ctx)
	close(a.done)

	// The attempt stays current until it settles; the next demand after
	// that starts a fresh one.
	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
}
