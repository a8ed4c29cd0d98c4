package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Refresh.ParseRefresh != nil
}

func (s Service) SignIn(ctx context.Context, identifier, secret string) SignInResult {
	return RunSignIn(ctx, identifier, secret, s.deps.SignIn)
}

func (s Service) SignUp(ctx context.Context, req SignUpRequest) SignUpResult {
	return RunSignUp(ctx, req, s.deps.SignUp)
}

func (s Service) OAuthSignIn(ctx context.Context, identity OAuthIdentity) OAuthResult {
	return RunOAuthSignIn(ctx, identity, s.deps.OAuth)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) SignOut(ctx context.Context, accountID, refreshToken string) SignOutResult {
	return RunSignOut(ctx, accountID, refreshToken, s.deps.SignOut)
}

func (s Service) SignOutAll(ctx context.Context, accountID string) (int64, error) {
	return RunSignOutAll(ctx, accountID, s.deps.SignOut)
}
