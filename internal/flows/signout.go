package flows

import "context"

// SignOutFailureKind classifies sign-out flow failures for root-level mapping.
type SignOutFailureKind int

const (
	SignOutFailureNone SignOutFailureKind = iota
	SignOutFailureStore
)

// SignOutResult reports whether a session row was invalidated.
type SignOutResult struct {
	Failure SignOutFailureKind
	Err     error
	Matched bool
}

// SignOutDeps captures sign-out flow dependencies.
type SignOutDeps struct {
	MatchAndDelete    func(ctx context.Context, accountID, refreshToken string) (bool, error)
	DeleteAllForOwner func(ctx context.Context, accountID string) (int64, error)
}

// RunSignOut invalidates the session matching the presented refresh token.
// An absent token is a no-op, not an error: the caller's session may already
// be gone and sign-out must still settle cleanly.
func RunSignOut(ctx context.Context, accountID, refreshToken string, deps SignOutDeps) SignOutResult {
	if refreshToken == "" {
		return SignOutResult{Failure: SignOutFailureNone, Matched: false}
	}

	matched, err := deps.MatchAndDelete(ctx, accountID, refreshToken)
	if err != nil {
		return SignOutResult{Failure: SignOutFailureStore, Err: err}
	}
	return SignOutResult{Failure: SignOutFailureNone, Matched: matched}
}

// RunSignOutAll invalidates every session owned by the account.
func RunSignOutAll(ctx context.Context, accountID string, deps SignOutDeps) (int64, error) {
	return deps.DeleteAllForOwner(ctx, accountID)
}
