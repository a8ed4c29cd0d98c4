// Package middleware exposes the HTTP guard that protects routes with
// engine-verified access tokens.
//
// [Guard] reads the Authorization header, calls Engine.VerifyAccess, and
// injects the resulting principal into the request context. It makes no
// authorization decision of its own beyond pass or reject.
package middleware
