// Package rate provides Redis-backed fixed-window counters for throttling
// sign-in and refresh attempts.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - as:  sign-in per-identifier
//   - asi: sign-in per-IP
//   - ar:  refresh per-account
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (the engine decides when to check).
//   - Be imported outside the authcore module.
package rate
