package flows

import "context"

// OAuthFailureKind classifies OAuth sign-in flow failures for root-level
// mapping.
type OAuthFailureKind int

const (
	OAuthFailureNone OAuthFailureKind = iota
	OAuthFailureInvalid
	OAuthFailureDirectory
	OAuthFailureIssue
	OAuthFailureStore
)

// OAuthIdentity is the provider-asserted identity handed to the flow after
// the relay has completed the code exchange.
type OAuthIdentity struct {
	Provider    string
	SubjectID   string
	Identifier  string
	DisplayName string
}

// OAuthAccountRecord is a flow-local account model used by the OAuth flow.
type OAuthAccountRecord struct {
	AccountID  string
	Identifier string
}

// OAuthResult carries the issued token pair or failure metadata. Created
// reports whether the flow provisioned a new account.
type OAuthResult struct {
	Failure      OAuthFailureKind
	Err          error
	Reason       string
	AccountID    string
	Created      bool
	AccessToken  string
	RefreshToken string
}

// OAuthDeps captures OAuth sign-in flow dependencies.
type OAuthDeps struct {
	FindByExternalIdentity     func(ctx context.Context, provider, subjectID string) (*OAuthAccountRecord, error)
	FindByIdentifier           func(context.Context, string) (*OAuthAccountRecord, error)
	AttachExternalIdentity     func(ctx context.Context, accountID, provider, subjectID string) error
	CreateFromExternalIdentity func(context.Context, OAuthIdentity) (OAuthAccountRecord, error)

	IssuePair     func(context.Context, string) (access, refresh string, err error)
	CreateSession func(context.Context, string, string) error
}

// RunOAuthSignIn resolves a provider identity to a local account, creating or
// linking one as needed, then issues a session.
//
// Resolution order: existing link wins, then an identifier match gets the
// link attached, then a fresh account is provisioned.
func RunOAuthSignIn(ctx context.Context, identity OAuthIdentity, deps OAuthDeps) OAuthResult {
	if identity.Provider == "" || identity.SubjectID == "" {
		return OAuthResult{Failure: OAuthFailureInvalid, Reason: "incomplete_identity"}
	}

	account, err := deps.FindByExternalIdentity(ctx, identity.Provider, identity.SubjectID)
	if err != nil {
		return OAuthResult{Failure: OAuthFailureDirectory, Err: err}
	}

	created := false
	if account == nil && identity.Identifier != "" {
		account, err = deps.FindByIdentifier(ctx, identity.Identifier)
		if err != nil {
			return OAuthResult{Failure: OAuthFailureDirectory, Err: err}
		}
		if account != nil {
			if err := deps.AttachExternalIdentity(ctx, account.AccountID, identity.Provider, identity.SubjectID); err != nil {
				return OAuthResult{Failure: OAuthFailureDirectory, Err: err, AccountID: account.AccountID}
			}
		}
	}
	if account == nil {
		record, err := deps.CreateFromExternalIdentity(ctx, identity)
		if err != nil {
			return OAuthResult{Failure: OAuthFailureDirectory, Err: err}
		}
		account = &record
		created = true
	}

	access, refresh, err := deps.IssuePair(ctx, account.AccountID)
	if err != nil {
		return OAuthResult{Failure: OAuthFailureIssue, Err: err, AccountID: account.AccountID, Created: created}
	}
	if err := deps.CreateSession(ctx, account.AccountID, refresh); err != nil {
		return OAuthResult{Failure: OAuthFailureStore, Err: err, AccountID: account.AccountID, Created: created}
	}

	return OAuthResult{
		Failure:      OAuthFailureNone,
		AccountID:    account.AccountID,
		Created:      created,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
