package authcore_test

import (
	"context"
	"errors"
	"testing"

	authcore "github.com/dayforge/authcore"
)

func TestSignOutRemovesOnlyMatchingSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig(t))
	accountID := env.seedAccount(t, "alice@example.com", "correct-horse")

	phone, err := env.engine.SignIn(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	laptop, err := env.engine.SignIn(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	if err := env.engine.SignOut(ctx, accountID, phone.RefreshToken); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	// The phone's refresh chain is dead; the laptop's keeps working.
	if _, err := env.engine.Refresh(ctx, phone.RefreshToken); !errors.Is(err, authcore.ErrTokenMismatch) {
		t.Fatalf("expected signed-out token to mismatch, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, laptop.RefreshToken); err != nil {
		t.Fatalf("unrelated session broken by sign-out: %v", err)
	}
}

func TestSignOutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig(t))
	accountID := env.seedAccount(t, "alice@example.com", "correct-horse")

	pair, err := env.engine.SignIn(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	// Repeats, rotated-away tokens, and empty tokens all settle cleanly.
	if err := env.engine.SignOut(ctx, accountID, pair.RefreshToken); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if err := env.engine.SignOut(ctx, accountID, pair.RefreshToken); err != nil {
		t.Fatalf("repeat SignOut failed: %v", err)
	}
	if err := env.engine.SignOut(ctx, accountID, ""); err != nil {
		t.Fatalf("empty-token SignOut failed: %v", err)
	}
}

func TestSignOutEmptyTokenKeepsSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig(t))
	accountID := env.seedAccount(t, "alice@example.com", "correct-horse")

	if _, err := env.engine.SignIn(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	// A credential-less sign-out must not guess which device to kill.
	if err := env.engine.SignOut(ctx, accountID, ""); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	count, err := env.engine.ActiveSessionCount(ctx, accountID)
	if err != nil {
		t.Fatalf("ActiveSessionCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected session to survive credential-less sign-out, got %d", count)
	}
}

func TestSignOutAll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, testConfig(t))
	accountID := env.seedAccount(t, "alice@example.com", "correct-horse")

	var tokens []string
	for i := 0; i < 3; i++ {
		pair, err := env.engine.SignIn(ctx, "alice@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("SignIn %d failed: %v", i, err)
		}
		tokens = append(tokens, pair.RefreshToken)
	}

	count, err := env.engine.SignOutAll(ctx, accountID)
	if err != nil {
		t.Fatalf("SignOutAll failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 sessions removed, got %d", count)
	}

	for i, token := range tokens {
		if _, err := env.engine.Refresh(ctx, token); !errors.Is(err, authcore.ErrTokenMismatch) {
			t.Fatalf("token %d survived SignOutAll: %v", i, err)
		}
	}

	remaining, err := env.engine.ActiveSessionCount(ctx, accountID)
	if err != nil {
		t.Fatalf("ActiveSessionCount failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no sessions after SignOutAll, got %d", remaining)
	}
}
