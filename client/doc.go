// Package client implements the caller-side refresh discipline for hosts
// talking to a relay.
//
// Rotating refresh tokens make concurrent refreshes actively harmful: two
// callers racing with the same token guarantee one of them loses the
// rotation and looks like token reuse. [Coordinator] serializes refreshes so
// at most one is in flight; every caller that arrives while it runs waits
// for and shares that single outcome. [Client] layers the retry-once rule on
// top: a 401 response triggers one coordinated refresh and one replay, and a
// terminal refresh failure tears the session down instead of retrying.
package client
