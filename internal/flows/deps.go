package flows

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	SignIn  SignInDeps
	SignUp  SignUpDeps
	OAuth   OAuthDeps
	Refresh RefreshDeps
	SignOut SignOutDeps
}
