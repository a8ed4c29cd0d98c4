package flows

import "context"

// SignInFailureKind classifies sign-in flow failures for root-level mapping.
type SignInFailureKind int

const (
	SignInFailureNone SignInFailureKind = iota
	SignInFailureRateLimited
	SignInFailureUnknownIdentifier
	SignInFailureNoLocalSecret
	SignInFailureSecretMismatch
	SignInFailureDirectory
	SignInFailureIssue
	SignInFailureStore
)

// SignInAccountRecord is a flow-local account model used by the sign-in flow.
type SignInAccountRecord struct {
	AccountID  string
	Identifier string
	SecretHash string
}

// SignInResult carries either the issued token pair or failure metadata.
// Reason is short audit metadata; it never reaches callers.
type SignInResult struct {
	Failure      SignInFailureKind
	Err          error
	Reason       string
	AccountID    string
	AccessToken  string
	RefreshToken string
}

// SignInDeps captures sign-in flow dependencies.
type SignInDeps struct {
	ClientIPFromContext func(context.Context) string

	CheckRate     func(context.Context, string, string) error
	IncrementRate func(context.Context, string, string) error
	ResetRate     func(context.Context, string, string) error

	FindByIdentifier func(context.Context, string) (*SignInAccountRecord, error)
	VerifySecret     func(secret, hash string) bool

	IssuePair     func(context.Context, string) (access, refresh string, err error)
	CreateSession func(context.Context, string, string) error

	Warn func(string, ...any)
}

// RunSignIn executes credential verification and session issuance. All
// credential-shaped failures carry a distinct kind plus a reason so the root
// engine can collapse them into one opaque caller-facing error.
func RunSignIn(ctx context.Context, identifier, secret string, deps SignInDeps) SignInResult {
	normalizeSignInDeps(&deps)

	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckRate != nil {
		if err := deps.CheckRate(ctx, identifier, ip); err != nil {
			return SignInResult{Failure: SignInFailureRateLimited, Err: err}
		}
	}

	if secret == "" {
		deps.recordFailure(ctx, identifier, ip)
		return SignInResult{Failure: SignInFailureSecretMismatch, Reason: "empty_secret"}
	}

	account, err := deps.FindByIdentifier(ctx, identifier)
	if err != nil {
		return SignInResult{Failure: SignInFailureDirectory, Err: err}
	}
	if account == nil {
		deps.recordFailure(ctx, identifier, ip)
		return SignInResult{Failure: SignInFailureUnknownIdentifier, Reason: "unknown_identifier"}
	}
	if account.SecretHash == "" {
		deps.recordFailure(ctx, identifier, ip)
		return SignInResult{
			Failure:   SignInFailureNoLocalSecret,
			Reason:    "no_local_secret",
			AccountID: account.AccountID,
		}
	}
	if !deps.VerifySecret(secret, account.SecretHash) {
		deps.recordFailure(ctx, identifier, ip)
		return SignInResult{
			Failure:   SignInFailureSecretMismatch,
			Reason:    "secret_mismatch",
			AccountID: account.AccountID,
		}
	}
	secret = ""

	access, refresh, err := deps.IssuePair(ctx, account.AccountID)
	if err != nil {
		return SignInResult{Failure: SignInFailureIssue, Err: err, AccountID: account.AccountID}
	}
	if err := deps.CreateSession(ctx, account.AccountID, refresh); err != nil {
		return SignInResult{Failure: SignInFailureStore, Err: err, AccountID: account.AccountID}
	}

	if deps.ResetRate != nil {
		if err := deps.ResetRate(ctx, identifier, ip); err != nil {
			deps.Warn("authcore: sign-in limiter reset failed")
		}
	}

	return SignInResult{
		Failure:      SignInFailureNone,
		AccountID:    account.AccountID,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

// recordFailure bumps the failure counter; limiter outages are logged, not
// allowed to mask the credential failure itself.
func (deps SignInDeps) recordFailure(ctx context.Context, identifier, ip string) {
	if deps.IncrementRate == nil {
		return
	}
	if err := deps.IncrementRate(ctx, identifier, ip); err != nil {
		deps.Warn("authcore: sign-in limiter increment failed")
	}
}

func normalizeSignInDeps(deps *SignInDeps) {
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
}
