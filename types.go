package authcore

import (
	"context"
	"time"
)

// TokenPair is one issuance result: a short-lived access token and the
// rotating refresh token bound to the same account.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Principal is returned by [Engine.VerifyAccess]. It identifies the account
// behind a verified access token.
type Principal struct {
	AccountID string
	ExpiresAt time.Time
}

// AccountRecord is the directory's view of an account. SecretHash is empty
// for accounts provisioned through an external identity provider only.
type AccountRecord struct {
	AccountID   string
	Identifier  string
	SecretHash  string
	DisplayName string
}

// CreateAccountInput is the input for [AccountDirectory.Create].
type CreateAccountInput struct {
	Identifier  string
	SecretHash  string
	DisplayName string
}

// ExternalIdentity is a provider-asserted identity, produced by the relay's
// OAuth code exchange and consumed by [Engine.OAuthSignIn].
type ExternalIdentity struct {
	Provider    string
	SubjectID   string
	Identifier  string
	DisplayName string
}

// AccountDirectory is the interface hosts implement to integrate their
// account database with the engine. Lookup methods return (nil, nil) when no
// account matches; errors are reserved for the directory itself being
// unreachable or broken.
//
// Create must return [ErrDuplicateIdentifier] (possibly wrapped) when the
// identifier is already taken.
type AccountDirectory interface {
	FindByID(ctx context.Context, accountID string) (*AccountRecord, error)
	FindByIdentifier(ctx context.Context, identifier string) (*AccountRecord, error)
	FindByExternalIdentity(ctx context.Context, provider, subjectID string) (*AccountRecord, error)
	Create(ctx context.Context, input CreateAccountInput) (AccountRecord, error)
	CreateFromExternalIdentity(ctx context.Context, identity ExternalIdentity) (AccountRecord, error)
	AttachExternalIdentity(ctx context.Context, accountID, provider, subjectID string) error
}

// SignUpRequest is the input for [Engine.SignUp].
type SignUpRequest struct {
	Identifier  string
	Secret      string
	DisplayName string
}

// SignUpResult is returned by [Engine.SignUp]. The new account is signed in
// immediately, so the result always carries a token pair.
type SignUpResult struct {
	AccountID string
	TokenPair
}
