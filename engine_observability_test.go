package authcore_test

import (
	"context"
	"errors"
	"testing"

	authcore "github.com/dayforge/authcore"
)

func TestVerifyAccessRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig(t))
	env.seedAccount(t, "alice@example.com", "correct-horse")

	pair, err := env.engine.SignIn(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	// Refresh tokens never pass as access tokens, and vice versa.
	if _, err := env.engine.VerifyAccess(ctx, pair.RefreshToken); !errors.Is(err, authcore.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for refresh token, got %v", err)
	}
	if _, err := env.engine.VerifyAccess(ctx, "garbage"); !errors.Is(err, authcore.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
	if _, err := env.engine.VerifyAccess(ctx, ""); !errors.Is(err, authcore.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for empty token, got %v", err)
	}
}

func TestEngineCountsFlowOutcomes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig(t))
	env.seedAccount(t, "alice@example.com", "correct-horse")

	pair, err := env.engine.SignIn(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if _, err := env.engine.SignIn(ctx, "alice@example.com", "wrong-horse!"); !errors.Is(err, authcore.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, authcore.ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	checks := map[authcore.MetricID]uint64{
		authcore.MetricSignInSuccess:        1,
		authcore.MetricSignInFailure:        1,
		authcore.MetricSessionCreated:       1,
		authcore.MetricRefreshSuccess:       1,
		authcore.MetricRefreshReuseDetected: 1,
	}
	for id, want := range checks {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("counter %d: got %d, want %d", id, got, want)
		}
	}
}

func TestEngineNilAndUnbuilt(t *testing.T) {
	var engine *authcore.Engine

	if _, err := engine.SignIn(context.Background(), "a", "b"); !errors.Is(err, authcore.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady from nil engine, got %v", err)
	}
	if _, err := engine.Refresh(context.Background(), "t"); !errors.Is(err, authcore.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady from nil engine, got %v", err)
	}
	engine.Close()
	if dropped := engine.AuditDropped(); dropped != 0 {
		t.Fatalf("expected 0 dropped on nil engine, got %d", dropped)
	}
}

func TestBuilderValidation(t *testing.T) {
	if _, err := authcore.New().Build(); err == nil {
		t.Fatal("expected bare builder to fail")
	}

	cfg := testConfig(t)
	cfg.Token.AccessTTL = cfg.Token.RefreshTTL
	if _, err := authcore.New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected invalid TTL ordering to fail")
	}
}
