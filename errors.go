package authcore

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before
	// Build wired its dependencies.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidCredentials covers every credential-shaped sign-in failure:
	// unknown identifier, account without a local secret, and secret
	// mismatch all collapse into it so callers cannot probe which accounts
	// exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned when a refresh names an account the
	// directory no longer knows.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTokenMismatch is returned when a presented refresh token matches no
	// active session for its account. It deliberately does not distinguish
	// an already-rotated token from a fabricated one.
	ErrTokenMismatch = errors.New("refresh token mismatch")
	// ErrRefreshInvalid is returned when a refresh token fails signature or
	// claim verification before any store lookup happens.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrTokenInvalid is returned when an access token fails verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrUpstreamUnavailable is returned when the account directory or the
	// session store cannot be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrAccountExists is returned by sign-up when the identifier is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrDuplicateIdentifier is the sentinel a directory implementation
	// returns (possibly wrapped) from Create when the identifier collides.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrSignUpInvalid is returned when a sign-up request is malformed.
	ErrSignUpInvalid = errors.New("invalid sign-up request")
	// ErrSecretPolicy is returned when a sign-up secret violates hashing
	// policy.
	ErrSecretPolicy = errors.New("secret policy violation")
	// ErrSignInRateLimited is returned when the sign-in throttle denies the
	// attempt.
	ErrSignInRateLimited = errors.New("sign-in rate limited")
	// ErrRefreshRateLimited is returned when the refresh throttle denies the
	// attempt.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
)
