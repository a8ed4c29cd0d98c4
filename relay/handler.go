package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	authcore "github.com/dayforge/authcore"
	"github.com/dayforge/authcore/middleware"
)

// ExchangeFunc completes an OAuth authorization code exchange with the named
// provider and returns the verified identity. The relay never talks to
// providers itself; hosts inject this.
type ExchangeFunc func(ctx context.Context, provider, code string) (authcore.ExternalIdentity, error)

// Config configures a relay [Handler].
type Config struct {
	Cookie CookieConfig

	// Exchange enables the OAuth callback route. Nil disables it.
	Exchange ExchangeFunc
}

// Handler serves the auth endpoints over same-origin HTTP. Mount it under a
// prefix matching the cookie path, typically /auth.
type Handler struct {
	engine   *authcore.Engine
	cookies  cookieJar
	exchange ExchangeFunc
	router   chi.Router
}

// NewHandler builds the relay routes against the given engine.
func NewHandler(engine *authcore.Engine, cfg Config) *Handler {
	h := &Handler{
		engine:   engine,
		cookies:  newCookieJar(cfg.Cookie),
		exchange: cfg.Exchange,
	}

	r := chi.NewRouter()
	r.Post("/signin", h.handleSignIn)
	r.Post("/signup", h.handleSignUp)
	r.Post("/refresh", h.handleRefresh)
	if h.exchange != nil {
		r.Get("/oauth/{provider}/callback", h.handleOAuthCallback)
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(engine))
		r.Post("/signout", h.handleSignOut)
		r.Post("/signout/all", h.handleSignOutAll)
	})
	h.router = r

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, requestWithCallerInfo(r))
}

type signInRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type signUpRequest struct {
	Identifier  string `json:"identifier"`
	Secret      string `json:"secret"`
	DisplayName string `json:"display_name"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id,omitempty"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pair, err := h.engine.SignIn(r.Context(), req.Identifier, req.Secret)
	if err != nil {
		switch {
		case errors.Is(err, authcore.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, authcore.ErrSignInRateLimited):
			writeError(w, http.StatusTooManyRequests, "too many attempts")
		case errors.Is(err, authcore.ErrUpstreamUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.cookies.set(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := h.engine.SignUp(r.Context(), authcore.SignUpRequest{
		Identifier:  req.Identifier,
		Secret:      req.Secret,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, authcore.ErrAccountExists):
			writeError(w, http.StatusConflict, "identifier already registered")
		case errors.Is(err, authcore.ErrSignUpInvalid), errors.Is(err, authcore.ErrSecretPolicy):
			writeError(w, http.StatusBadRequest, "invalid sign-up request")
		case errors.Is(err, authcore.ErrUpstreamUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.cookies.set(w, result.RefreshToken)
	writeJSON(w, http.StatusCreated, tokenResponse{
		AccessToken: result.AccessToken,
		AccountID:   result.AccountID,
	})
}

// handleRefresh distinguishes 401 (nothing usable presented, a fresh sign-in
// might not be needed) from 403 (a credential was presented and rejected,
// the session is gone). Terminal rejections also clear the cookie so the
// browser stops replaying a dead credential.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.cookies.read(r)
	if refreshToken == "" {
		writeError(w, http.StatusUnauthorized, "no refresh credential")
		return
	}

	pair, err := h.engine.Refresh(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, authcore.ErrRefreshInvalid),
			errors.Is(err, authcore.ErrTokenMismatch),
			errors.Is(err, authcore.ErrAccountNotFound):
			h.cookies.clear(w)
			writeError(w, http.StatusForbidden, "refresh rejected")
		case errors.Is(err, authcore.ErrRefreshRateLimited):
			writeError(w, http.StatusTooManyRequests, "too many refreshes")
		case errors.Is(err, authcore.ErrUpstreamUnavailable):
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.cookies.set(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	identity, err := h.exchange(r.Context(), provider, code)
	if err != nil {
		writeError(w, http.StatusBadGateway, "provider exchange failed")
		return
	}

	pair, err := h.engine.OAuthSignIn(r.Context(), identity)
	if err != nil {
		if errors.Is(err, authcore.ErrUpstreamUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.cookies.set(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

// handleSignOut accepts the refresh token either in the body or, failing
// that, from the cookie. The cookie is cleared regardless of whether a
// session row matched; sign-out always settles on the browser side.
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	principal := authcore.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	refreshToken := body.RefreshToken
	if refreshToken == "" {
		refreshToken = h.cookies.read(r)
	}

	err := h.engine.SignOut(r.Context(), principal.AccountID, refreshToken)
	h.cookies.clear(w)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSignOutAll(w http.ResponseWriter, r *http.Request) {
	principal := authcore.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.engine.SignOutAll(r.Context(), principal.AccountID)
	h.cookies.clear(w)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"sessions_removed": count})
}

// requestWithCallerInfo attaches the caller's IP and User-Agent to the
// request context for throttling and audit records.
func requestWithCallerInfo(r *http.Request) *http.Request {
	ctx := r.Context()
	if ip := remoteIP(r); ip != "" {
		ctx = authcore.WithClientIP(ctx, ip)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = authcore.WithUserAgent(ctx, ua)
	}
	return r.WithContext(ctx)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
