// Package authcore is an embeddable session and token engine built around
// rotating refresh tokens.
//
// The engine issues short-lived access tokens and long-lived refresh tokens
// as a pair. Each sign-in creates one device session row holding a bcrypt
// hash of the refresh token; a refresh atomically rotates that hash, so a
// refresh token works exactly once. A second presentation of a consumed
// token fails with [ErrTokenMismatch], which is the reuse-detection signal.
//
// Hosts integrate by implementing [AccountDirectory] over their own account
// storage and assembling an [Engine] with [Builder]:
//
//	engine, err := authcore.New().
//		WithDB(db).
//		WithRedis(rdb).
//		WithDirectory(dir).
//		Build()
//
// The relay subpackage exposes the engine over HTTP with cookie transport;
// the client subpackage implements the browser-side single-flight refresh
// discipline for Go callers.
package authcore
