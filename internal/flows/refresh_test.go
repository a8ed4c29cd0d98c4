package flows

import (
	"context"
	"errors"
	"testing"
)

var (
	errRateLimited = errors.New("rate limited")
	errNoMatch     = errors.New("no match")
)

func passingRefreshDeps(calls *[]string) RefreshDeps {
	record := func(name string) {
		if calls != nil {
			*calls = append(*calls, name)
		}
	}
	return RefreshDeps{
		ParseRefresh: func(string) (string, error) {
			record("parse")
			return "acct-1", nil
		},
		CheckRate: func(context.Context, string) error {
			record("rate")
			return nil
		},
		AccountExists: func(context.Context, string) (bool, error) {
			record("exists")
			return true, nil
		},
		IssuePair: func(context.Context, string) (string, string, error) {
			record("issue")
			return "access-1", "refresh-2", nil
		},
		Rotate: func(context.Context, string, string, string) error {
			record("rotate")
			return nil
		},
		SweepAsync:  func() { record("sweep") },
		RateLimited: errRateLimited,
		NoMatch:     errNoMatch,
	}
}

func TestRunRefreshHappyPathOrdering(t *testing.T) {
	var calls []string
	res := RunRefresh(context.Background(), "refresh-1", passingRefreshDeps(&calls))

	if res.Failure != RefreshFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if res.AccessToken != "access-1" || res.RefreshToken != "refresh-2" {
		t.Fatalf("unexpected pair %q/%q", res.AccessToken, res.RefreshToken)
	}

	// The replacement pair must exist before the rotation commits, and the
	// sweep only runs after a successful rotation.
	want := []string{"parse", "rate", "exists", "issue", "rotate", "sweep"}
	if len(calls) != len(want) {
		t.Fatalf("call sequence %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call sequence %v, want %v", calls, want)
		}
	}
}

func TestRunRefreshMismatchSkipsSweep(t *testing.T) {
	var calls []string
	deps := passingRefreshDeps(&calls)
	deps.Rotate = func(context.Context, string, string, string) error {
		calls = append(calls, "rotate")
		return errNoMatch
	}

	res := RunRefresh(context.Background(), "refresh-1", deps)
	if res.Failure != RefreshFailureMismatch {
		t.Fatalf("expected mismatch failure, got %v", res.Failure)
	}
	for _, call := range calls {
		if call == "sweep" {
			t.Fatal("sweep must not run after a failed rotation")
		}
	}
}

func TestRunRefreshRateLimitedBeforeRotation(t *testing.T) {
	var calls []string
	deps := passingRefreshDeps(&calls)
	deps.CheckRate = func(context.Context, string) error {
		calls = append(calls, "rate")
		return errRateLimited
	}

	res := RunRefresh(context.Background(), "refresh-1", deps)
	if res.Failure != RefreshFailureRateLimited {
		t.Fatalf("expected rate-limited failure, got %v", res.Failure)
	}
	// A throttled attempt never touches the stored credential.
	for _, call := range calls {
		if call == "issue" || call == "rotate" {
			t.Fatalf("throttled refresh reached %q", call)
		}
	}
}

func TestRunRefreshNilCheckRate(t *testing.T) {
	deps := passingRefreshDeps(nil)
	deps.CheckRate = nil

	res := RunRefresh(context.Background(), "refresh-1", deps)
	if res.Failure != RefreshFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
}

func TestRunRefreshDecodeFailure(t *testing.T) {
	deps := passingRefreshDeps(nil)
	parseErr := errors.New("bad token")
	deps.ParseRefresh = func(string) (string, error) { return "", parseErr }

	res := RunRefresh(context.Background(), "garbage", deps)
	if res.Failure != RefreshFailureDecode {
		t.Fatalf("expected decode failure, got %v", res.Failure)
	}
	if !errors.Is(res.Err, parseErr) {
		t.Fatalf("expected wrapped parse error, got %v", res.Err)
	}
}

func TestRunRefreshUnknownAccount(t *testing.T) {
	deps := passingRefreshDeps(nil)
	deps.AccountExists = func(context.Context, string) (bool, error) { return false, nil }

	res := RunRefresh(context.Background(), "refresh-1", deps)
	if res.Failure != RefreshFailureAccountNotFound {
		t.Fatalf("expected account-not-found failure, got %v", res.Failure)
	}
	if res.AccountID != "acct-1" {
		t.Fatalf("expected account id carried through, got %q", res.AccountID)
	}
}
