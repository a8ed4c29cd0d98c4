package relay

import (
	"net/http"
	"time"
)

// CookieConfig controls the refresh token cookie. The zero value is not
// usable; call defaultCookieConfig or fill every field.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite

	// MaxAge should match the refresh token TTL so the cookie and the
	// credential inside it expire together.
	MaxAge time.Duration
}

func defaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "refresh_token",
		Path:     "/auth",
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   7 * 24 * time.Hour,
	}
}

// cookieJar reads, sets, and clears the refresh cookie with one consistent
// attribute set. Clearing quirks live here so handlers stay readable.
type cookieJar struct {
	config CookieConfig
}

func newCookieJar(cfg CookieConfig) cookieJar {
	if cfg.Name == "" {
		cfg = defaultCookieConfig()
	}
	return cookieJar{config: cfg}
}

func (j cookieJar) read(r *http.Request) string {
	cookie, err := r.Cookie(j.config.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (j cookieJar) set(w http.ResponseWriter, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     j.config.Name,
		Value:    refreshToken,
		Path:     j.config.Path,
		Domain:   j.config.Domain,
		MaxAge:   int(j.config.MaxAge / time.Second),
		Secure:   j.config.Secure,
		HttpOnly: true,
		SameSite: j.config.SameSite,
	})
}

func (j cookieJar) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     j.config.Name,
		Value:    "",
		Path:     j.config.Path,
		Domain:   j.config.Domain,
		MaxAge:   -1,
		Secure:   j.config.Secure,
		HttpOnly: true,
		SameSite: j.config.SameSite,
	})
}
