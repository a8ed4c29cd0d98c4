package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dayforge/authcore/internal/flows"
	"github.com/dayforge/authcore/internal/rate"
	"github.com/dayforge/authcore/secret"
	"github.com/dayforge/authcore/store"
	"github.com/dayforge/authcore/token"
)

// Engine is the session and token engine. Build one with [Builder]; an Engine
// is immutable after construction and safe for concurrent use.
type Engine struct {
	config    Config
	issuer    *token.Issuer
	hasher    *token.Hasher
	sessions  *store.Store
	limiter   *rate.Limiter
	secrets   *secret.Argon2
	directory AccountDirectory
	audit     *auditDispatcher
	metrics   *Metrics
	service   flows.Service
}

// Close stops the audit dispatcher and drains its buffer. Safe to call on a
// nil engine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the engine's metric registry for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// SignIn verifies an identifier/secret pair and, on success, creates a device
// session and returns a fresh token pair.
//
// Unknown identifiers, accounts without a local secret, and wrong secrets all
// surface as [ErrInvalidCredentials]; the distinction lives only in audit
// metadata.
func (e *Engine) SignIn(ctx context.Context, identifier, secretValue string) (TokenPair, error) {
	if e == nil || !e.service.Initialized() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.service.SignIn(ctx, identifier, secretValue)

	switch res.Failure {
	case flows.SignInFailureNone:
		e.metricInc(MetricSignInSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditEventSignInSuccess, true, res.AccountID, nil, nil)
		return TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil

	case flows.SignInFailureRateLimited:
		e.metricInc(MetricSignInRateLimited)
		e.emitAudit(ctx, auditEventSignInRateLimited, false, "", res.Err, nil)
		return TokenPair{}, ErrSignInRateLimited

	case flows.SignInFailureUnknownIdentifier,
		flows.SignInFailureNoLocalSecret,
		flows.SignInFailureSecretMismatch:
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, res.AccountID, nil, map[string]string{
			"reason": res.Reason,
		})
		return TokenPair{}, ErrInvalidCredentials

	case flows.SignInFailureDirectory:
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, res.AccountID, res.Err, nil)
		return TokenPair{}, ErrUpstreamUnavailable

	default:
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignInFailure, false, res.AccountID, res.Err, nil)
		return TokenPair{}, res.Err
	}
}

// SignUp creates an account through the directory and signs it in, leaving
// the new account with exactly one active session.
func (e *Engine) SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error) {
	if e == nil || !e.service.Initialized() {
		return SignUpResult{}, ErrEngineNotReady
	}

	res := e.service.SignUp(ctx, flows.SignUpRequest{
		Identifier:  req.Identifier,
		Secret:      req.Secret,
		DisplayName: req.DisplayName,
	})

	switch res.Failure {
	case flows.SignUpFailureNone:
		e.metricInc(MetricSignUpSuccess)
		e.metricInc(MetricSessionCreated)
		e.emitAudit(ctx, auditEventSignUpSuccess, true, res.AccountID, nil, nil)
		return SignUpResult{
			AccountID: res.AccountID,
			TokenPair: TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken},
		}, nil

	case flows.SignUpFailureInvalid:
		e.emitAudit(ctx, auditEventSignUpFailure, false, "", nil, map[string]string{
			"reason": res.Reason,
		})
		return SignUpResult{}, ErrSignUpInvalid

	case flows.SignUpFailureSecretPolicy:
		e.emitAudit(ctx, auditEventSignUpFailure, false, "", res.Err, map[string]string{
			"reason": res.Reason,
		})
		if res.Err != nil {
			return SignUpResult{}, fmt.Errorf("%w: %v", ErrSecretPolicy, res.Err)
		}
		return SignUpResult{}, ErrSecretPolicy

	case flows.SignUpFailureDuplicate:
		e.metricInc(MetricSignUpDuplicate)
		e.emitAudit(ctx, auditEventSignUpDuplicate, false, "", nil, map[string]string{
			"identifier": req.Identifier,
		})
		return SignUpResult{}, ErrAccountExists

	case flows.SignUpFailureDirectory:
		e.emitAudit(ctx, auditEventSignUpFailure, false, "", res.Err, nil)
		return SignUpResult{}, ErrUpstreamUnavailable

	default:
		e.emitAudit(ctx, auditEventSignUpFailure, false, res.AccountID, res.Err, nil)
		return SignUpResult{}, res.Err
	}
}

// OAuthSignIn resolves a provider-asserted identity to a local account and
// issues a session. The caller (normally the relay) has already completed the
// provider code exchange; the engine only sees the verified identity.
func (e *Engine) OAuthSignIn(ctx context.Context, identity ExternalIdentity) (TokenPair, error) {
	if e == nil || !e.service.Initialized() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.service.OAuthSignIn(ctx, flows.OAuthIdentity{
		Provider:    identity.Provider,
		SubjectID:   identity.SubjectID,
		Identifier:  identity.Identifier,
		DisplayName: identity.DisplayName,
	})

	switch res.Failure {
	case flows.OAuthFailureNone:
		e.metricInc(MetricOAuthSuccess)
		e.metricInc(MetricSessionCreated)
		if res.Created {
			e.metricInc(MetricOAuthAccountCreated)
		}
		e.emitAudit(ctx, auditEventOAuthSuccess, true, res.AccountID, nil, map[string]string{
			"provider": identity.Provider,
			"created":  fmt.Sprintf("%t", res.Created),
		})
		return TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil

	case flows.OAuthFailureInvalid:
		e.metricInc(MetricOAuthFailure)
		e.emitAudit(ctx, auditEventOAuthFailure, false, "", nil, map[string]string{
			"reason": res.Reason,
		})
		return TokenPair{}, fmt.Errorf("%w: incomplete external identity", ErrSignUpInvalid)

	case flows.OAuthFailureDirectory:
		e.metricInc(MetricOAuthFailure)
		e.emitAudit(ctx, auditEventOAuthFailure, false, res.AccountID, res.Err, map[string]string{
			"provider": identity.Provider,
		})
		return TokenPair{}, ErrUpstreamUnavailable

	default:
		e.metricInc(MetricOAuthFailure)
		e.emitAudit(ctx, auditEventOAuthFailure, false, res.AccountID, res.Err, nil)
		return TokenPair{}, res.Err
	}
}

// Refresh rotates the presented refresh token and returns the replacement
// pair. The old token stops working the moment the rotation commits; a
// second caller racing with the same token gets [ErrTokenMismatch].
//
// A successful refresh also kicks off a detached sweep of expired session
// rows.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || !e.service.Initialized() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.service.Refresh(ctx, refreshToken)

	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.AccountID, nil, nil)
		return TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil

	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", res.Err, nil)
		return TokenPair{}, ErrRefreshInvalid

	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, res.AccountID, res.Err, nil)
		return TokenPair{}, ErrRefreshRateLimited

	case flows.RefreshFailureAccountNotFound:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.AccountID, nil, map[string]string{
			"reason": "account_not_found",
		})
		return TokenPair{}, ErrAccountNotFound

	case flows.RefreshFailureMismatch:
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuse, false, res.AccountID, nil, nil)
		return TokenPair{}, ErrTokenMismatch

	case flows.RefreshFailureDirectory, flows.RefreshFailureRotate:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.AccountID, res.Err, nil)
		return TokenPair{}, ErrUpstreamUnavailable

	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.AccountID, res.Err, nil)
		return TokenPair{}, res.Err
	}
}

// SignOut invalidates the session matching the presented refresh token. An
// empty or non-matching token is a successful no-op; the caller's session
// may have already been rotated away or swept.
func (e *Engine) SignOut(ctx context.Context, accountID, refreshToken string) error {
	if e == nil || !e.service.Initialized() {
		return ErrEngineNotReady
	}

	res := e.service.SignOut(ctx, accountID, refreshToken)
	if res.Failure == flows.SignOutFailureStore {
		e.emitAudit(ctx, auditEventSignOutSession, false, accountID, res.Err, nil)
		return ErrUpstreamUnavailable
	}

	if res.Matched {
		e.metricInc(MetricSignOutMatched)
		e.metricInc(MetricSessionInvalidated)
	} else {
		e.metricInc(MetricSignOutNoop)
	}
	e.emitAudit(ctx, auditEventSignOutSession, true, accountID, nil, map[string]string{
		"matched": fmt.Sprintf("%t", res.Matched),
	})
	return nil
}

// SignOutAll invalidates every session owned by the account and reports how
// many rows it removed.
func (e *Engine) SignOutAll(ctx context.Context, accountID string) (int64, error) {
	if e == nil || !e.service.Initialized() {
		return 0, ErrEngineNotReady
	}

	count, err := e.service.SignOutAll(ctx, accountID)
	if err != nil {
		e.emitAudit(ctx, auditEventSignOutAll, false, accountID, err, nil)
		return 0, ErrUpstreamUnavailable
	}

	e.metricInc(MetricSignOutAll)
	e.emitAudit(ctx, auditEventSignOutAll, true, accountID, nil, map[string]string{
		"sessions": fmt.Sprintf("%d", count),
	})
	return count, nil
}

// VerifyAccess verifies an access token and returns the principal behind it.
// Every structural or signature failure collapses into [ErrTokenInvalid].
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (*Principal, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	claims, err := e.issuer.ParseAccess(accessToken)
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	if err != nil {
		return nil, ErrTokenInvalid
	}

	principal := &Principal{AccountID: claims.Subject}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}

// ActiveSessionCount returns how many unexpired sessions the account holds.
func (e *Engine) ActiveSessionCount(ctx context.Context, accountID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	active, err := e.sessions.FindActive(ctx, accountID)
	if err != nil {
		return 0, ErrUpstreamUnavailable
	}
	return len(active), nil
}

// SweepExpiredNow removes expired session rows synchronously. The engine
// already sweeps opportunistically after refreshes; this exists for hosts
// that want a scheduled cleanup as well.
func (e *Engine) SweepExpiredNow(ctx context.Context) (int64, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	return e.sessions.SweepExpired(ctx)
}

// sweepAsync runs one expired-row sweep on a detached context. Failures are
// counted and logged, never surfaced; the rows stay inert until the next
// sweep either way.
func (e *Engine) sweepAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.config.Session.SweepTimeout)
		defer cancel()

		if _, err := e.sessions.SweepExpired(ctx); err != nil {
			e.metricInc(MetricSweepFailure)
			e.emitAudit(ctx, auditEventSweepFailure, false, "", err, nil)
			log.Printf("authcore: session sweep failed: %v", err)
		}
	}()
}

func (e *Engine) metricInc(id MetricID) {
	if e.metrics != nil {
		e.metrics.Inc(id)
	}
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, accountID string, failure error, metadata map[string]string) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	e.audit.Emit(ctx, event)
}

// flowDeps wires the flow dependency sets against the engine's own
// components. Flow packages never see the engine; they see these closures.
func (e *Engine) flowDeps() flows.Deps {
	issuePair := func(_ context.Context, subject string) (string, string, error) {
		pair, err := e.issuer.IssuePair(subject)
		if err != nil {
			return "", "", err
		}
		return pair.Access, pair.Refresh, nil
	}
	createSession := func(ctx context.Context, accountID, refresh string) error {
		_, err := e.sessions.Create(ctx, accountID, refresh, e.config.Token.RefreshTTL)
		return err
	}

	deps := flows.Deps{
		SignIn: flows.SignInDeps{
			ClientIPFromContext: clientIPFromContext,
			FindByIdentifier: func(ctx context.Context, identifier string) (*flows.SignInAccountRecord, error) {
				record, err := e.directory.FindByIdentifier(ctx, identifier)
				if err != nil || record == nil {
					return nil, err
				}
				return &flows.SignInAccountRecord{
					AccountID:  record.AccountID,
					Identifier: record.Identifier,
					SecretHash: record.SecretHash,
				}, nil
			},
			VerifySecret: func(secretValue, hash string) bool {
				ok, err := e.secrets.Verify(secretValue, hash)
				return err == nil && ok
			},
			IssuePair:     issuePair,
			CreateSession: createSession,
			Warn:          log.Printf,
		},
		SignUp: flows.SignUpDeps{
			HashSecret: e.secrets.Hash,
			CreateAccount: func(ctx context.Context, input flows.SignUpCreateInput) (flows.SignUpAccountRecord, error) {
				record, err := e.directory.Create(ctx, CreateAccountInput{
					Identifier:  input.Identifier,
					SecretHash:  input.SecretHash,
					DisplayName: input.DisplayName,
				})
				if err != nil {
					return flows.SignUpAccountRecord{}, err
				}
				return flows.SignUpAccountRecord{
					AccountID:  record.AccountID,
					Identifier: record.Identifier,
				}, nil
			},
			IsDuplicate: func(err error) bool {
				return errors.Is(err, ErrDuplicateIdentifier)
			},
			IssuePair:     issuePair,
			CreateSession: createSession,
		},
		OAuth: flows.OAuthDeps{
			FindByExternalIdentity: func(ctx context.Context, provider, subjectID string) (*flows.OAuthAccountRecord, error) {
				record, err := e.directory.FindByExternalIdentity(ctx, provider, subjectID)
				if err != nil || record == nil {
					return nil, err
				}
				return &flows.OAuthAccountRecord{AccountID: record.AccountID, Identifier: record.Identifier}, nil
			},
			FindByIdentifier: func(ctx context.Context, identifier string) (*flows.OAuthAccountRecord, error) {
				record, err := e.directory.FindByIdentifier(ctx, identifier)
				if err != nil || record == nil {
					return nil, err
				}
				return &flows.OAuthAccountRecord{AccountID: record.AccountID, Identifier: record.Identifier}, nil
			},
			AttachExternalIdentity: e.directory.AttachExternalIdentity,
			CreateFromExternalIdentity: func(ctx context.Context, identity flows.OAuthIdentity) (flows.OAuthAccountRecord, error) {
				record, err := e.directory.CreateFromExternalIdentity(ctx, ExternalIdentity{
					Provider:    identity.Provider,
					SubjectID:   identity.SubjectID,
					Identifier:  identity.Identifier,
					DisplayName: identity.DisplayName,
				})
				if err != nil {
					return flows.OAuthAccountRecord{}, err
				}
				return flows.OAuthAccountRecord{AccountID: record.AccountID, Identifier: record.Identifier}, nil
			},
			IssuePair:     issuePair,
			CreateSession: createSession,
		},
		Refresh: flows.RefreshDeps{
			ParseRefresh: func(tokenStr string) (string, error) {
				claims, err := e.issuer.ParseRefresh(tokenStr)
				if err != nil {
					return "", err
				}
				return claims.Subject, nil
			},
			AccountExists: func(ctx context.Context, accountID string) (bool, error) {
				record, err := e.directory.FindByID(ctx, accountID)
				if err != nil {
					return false, err
				}
				return record != nil, nil
			},
			IssuePair: issuePair,
			Rotate: func(ctx context.Context, accountID, provided, next string) error {
				_, err := e.sessions.MatchAndRotate(ctx, accountID, provided, next, e.config.Token.RefreshTTL)
				return err
			},
			SweepAsync:  e.sweepAsync,
			RateLimited: rate.ErrRateLimited,
			NoMatch:     store.ErrNoMatch,
		},
		SignOut: flows.SignOutDeps{
			MatchAndDelete:    e.sessions.MatchAndDelete,
			DeleteAllForOwner: e.sessions.DeleteAllForOwner,
		},
	}

	if e.limiter != nil {
		deps.SignIn.CheckRate = e.limiter.CheckSignIn
		deps.SignIn.IncrementRate = e.limiter.IncrementSignIn
		deps.SignIn.ResetRate = e.limiter.ResetSignIn
		if e.config.RateLimit.EnableRefreshThrottle {
			deps.Refresh.CheckRate = e.limiter.CheckRefresh
		}
	}

	return deps
}
