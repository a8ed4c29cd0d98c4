package flows

import "context"

// SignUpFailureKind classifies sign-up flow failures for root-level mapping.
type SignUpFailureKind int

const (
	SignUpFailureNone SignUpFailureKind = iota
	SignUpFailureInvalid
	SignUpFailureSecretPolicy
	SignUpFailureDuplicate
	SignUpFailureDirectory
	SignUpFailureIssue
	SignUpFailureStore
)

// SignUpRequest is the flow-local sign-up input shape.
type SignUpRequest struct {
	Identifier  string
	Secret      string
	DisplayName string
}

// SignUpCreateInput is what the flow hands the directory to persist.
type SignUpCreateInput struct {
	Identifier  string
	SecretHash  string
	DisplayName string
}

// SignUpAccountRecord is a flow-local view of the created account.
type SignUpAccountRecord struct {
	AccountID  string
	Identifier string
}

// SignUpResult carries the created account plus the auto-login token pair,
// or failure metadata.
type SignUpResult struct {
	Failure      SignUpFailureKind
	Err          error
	Reason       string
	AccountID    string
	AccessToken  string
	RefreshToken string
}

// SignUpDeps captures sign-up flow dependencies.
type SignUpDeps struct {
	HashSecret    func(string) (string, error)
	CreateAccount func(context.Context, SignUpCreateInput) (SignUpAccountRecord, error)
	IsDuplicate   func(error) bool

	IssuePair     func(context.Context, string) (access, refresh string, err error)
	CreateSession func(context.Context, string, string) error
}

// RunSignUp creates an account and signs it in, leaving exactly one active
// session for the new account.
func RunSignUp(ctx context.Context, req SignUpRequest, deps SignUpDeps) SignUpResult {
	if req.Identifier == "" {
		return SignUpResult{Failure: SignUpFailureInvalid, Reason: "empty_identifier"}
	}
	if req.Secret == "" {
		return SignUpResult{Failure: SignUpFailureSecretPolicy, Reason: "empty_secret"}
	}

	secretHash, err := deps.HashSecret(req.Secret)
	if err != nil {
		return SignUpResult{Failure: SignUpFailureSecretPolicy, Err: err, Reason: "hash_policy"}
	}
	req.Secret = ""

	created, err := deps.CreateAccount(ctx, SignUpCreateInput{
		Identifier:  req.Identifier,
		SecretHash:  secretHash,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		if deps.IsDuplicate != nil && deps.IsDuplicate(err) {
			return SignUpResult{Failure: SignUpFailureDuplicate, Err: err}
		}
		return SignUpResult{Failure: SignUpFailureDirectory, Err: err}
	}

	access, refresh, err := deps.IssuePair(ctx, created.AccountID)
	if err != nil {
		return SignUpResult{Failure: SignUpFailureIssue, Err: err, AccountID: created.AccountID}
	}
	if err := deps.CreateSession(ctx, created.AccountID, refresh); err != nil {
		return SignUpResult{Failure: SignUpFailureStore, Err: err, AccountID: created.AccountID}
	}

	return SignUpResult{
		Failure:      SignUpFailureNone,
		AccountID:    created.AccountID,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
