// Package relay exposes the engine over same-origin HTTP.
//
// The relay keeps the refresh token in an HttpOnly cookie so browser scripts
// never see it; only the short-lived access token crosses into JavaScript.
// Response codes separate recoverable refresh failures (401, no usable
// credential was presented) from terminal ones (403, the credential was
// presented and rejected), which is the distinction the client package keys
// its give-up behavior on.
package relay
