package flows

import (
	"context"
	"errors"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureAccountNotFound
	RefreshFailureDirectory
	RefreshFailureIssue
	RefreshFailureMismatch
	RefreshFailureRotate
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	AccountID    string
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh func(string) (string, error)
	CheckRate    func(context.Context, string) error

	AccountExists func(context.Context, string) (bool, error)

	IssuePair func(context.Context, string) (access, refresh string, err error)
	Rotate    func(ctx context.Context, accountID, provided, next string) error

	// SweepAsync kicks off expired-row cleanup after a successful rotation.
	// Fire and forget; failures are the sweeper's problem.
	SweepAsync func()

	RateLimited error
	NoMatch     error
}

// RunRefresh executes refresh rotation and issuance. The replacement pair is
// minted before the rotation commits so a persisted hash always has a live
// credential behind it; a failed rotation just discards the minted pair.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	accountID, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	if deps.CheckRate != nil {
		if err := deps.CheckRate(ctx, accountID); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, AccountID: accountID}
			}
			return RefreshResult{Failure: RefreshFailureDirectory, Err: err, AccountID: accountID}
		}
	}

	exists, err := deps.AccountExists(ctx, accountID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDirectory, Err: err, AccountID: accountID}
	}
	if !exists {
		return RefreshResult{Failure: RefreshFailureAccountNotFound, AccountID: accountID}
	}

	access, next, err := deps.IssuePair(ctx, accountID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, AccountID: accountID}
	}

	if err := deps.Rotate(ctx, accountID, refreshToken, next); err != nil {
		if deps.NoMatch != nil && errors.Is(err, deps.NoMatch) {
			return RefreshResult{Failure: RefreshFailureMismatch, Err: err, AccountID: accountID}
		}
		return RefreshResult{Failure: RefreshFailureRotate, Err: err, AccountID: accountID}
	}

	if deps.SweepAsync != nil {
		deps.SweepAsync()
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		AccountID:    accountID,
		AccessToken:  access,
		RefreshToken: next,
	}
}
