// Package internaldefs holds the metric name table shared by the exporters.
// It exists so the Prometheus and OpenTelemetry exporters render the same
// metrics under the same names without either importing the other.
package internaldefs

import (
	authcore "github.com/dayforge/authcore"
)

// CounterDef maps a core counter to its exported name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef maps a core histogram to its exported name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricSignInSuccess, Name: "authcore_signin_success_total", Help: "Successful sign-in attempts."},
	{ID: authcore.MetricSignInFailure, Name: "authcore_signin_failure_total", Help: "Failed sign-in attempts."},
	{ID: authcore.MetricSignInRateLimited, Name: "authcore_signin_rate_limited_total", Help: "Rate-limited sign-in attempts."},
	{ID: authcore.MetricSignUpSuccess, Name: "authcore_signup_success_total", Help: "Successful account creations."},
	{ID: authcore.MetricSignUpDuplicate, Name: "authcore_signup_duplicate_total", Help: "Sign-up attempts rejected as duplicate."},
	{ID: authcore.MetricOAuthSuccess, Name: "authcore_oauth_success_total", Help: "Successful OAuth sign-ins."},
	{ID: authcore.MetricOAuthFailure, Name: "authcore_oauth_failure_total", Help: "Failed OAuth sign-ins."},
	{ID: authcore.MetricOAuthAccountCreated, Name: "authcore_oauth_account_created_total", Help: "Accounts provisioned from an external identity."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authcore.MetricRefreshRateLimited, Name: "authcore_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: authcore.MetricSignOutMatched, Name: "authcore_signout_matched_total", Help: "Sign-outs that invalidated a session."},
	{ID: authcore.MetricSignOutNoop, Name: "authcore_signout_noop_total", Help: "Sign-outs with no matching session."},
	{ID: authcore.MetricSignOutAll, Name: "authcore_signout_all_total", Help: "Sign-out-all operations."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Created device sessions."},
	{ID: authcore.MetricSessionInvalidated, Name: "authcore_session_invalidated_total", Help: "Invalidated device sessions."},
	{ID: authcore.MetricSweepFailure, Name: "authcore_sweep_failure_total", Help: "Failed expired-session sweeps."},
}

// HistogramDefs lists every exported histogram in render order.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricVerifyLatency, Name: "authcore_verify_latency_seconds", Help: "Access token verification latency histogram."},
}

// HistogramBounds are the upper bounds of the core histogram buckets,
// rendered as Prometheus le label values.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters safe for
// metric name suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
