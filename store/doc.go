// Package store persists device sessions: one row per logical login, owned
// by an account, carrying a one-way hash of the session's current refresh
// credential and an expiry.
//
// Because credential hashes are salted, rows cannot be addressed by
// credential. Every credential-bearing operation is a bounded linear
// verify-scan over the active sessions of a single account, bounded by a
// realistic device count rather than global row count.
//
// Rotation replaces the matched row's hash in place under a compare-and-swap
// on the previous hash. Two concurrent rotations presenting the same
// credential race; exactly one commits and the loser fails with
// [ErrNoMatch]. That failure is the reuse-detection signal, not a defect to
// serialize away.
package store
