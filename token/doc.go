// Package token issues and verifies the two signed credentials of a device
// session: a short-lived access token and a long-lived refresh token. The two
// are produced by independent signing operations and carry a "use" claim so
// that one can never be presented in place of the other.
//
// The package also provides [Hasher], the one-way transform applied to raw
// refresh credentials before they are persisted. Hashes are salted, so the
// store cannot look a credential up by key; it must verify-scan the active
// sessions of one account.
package token
