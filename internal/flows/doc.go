// Package flows contains the flow implementations behind the root engine's
// request methods. Each flow is a Run* function taking a flow-local Deps
// struct of injected functions, so flows never import the root package and
// stay testable without an engine.
//
// Flows report outcomes through Result structs carrying a FailureKind. The
// root engine maps kinds to its sentinel errors and handles audit and metric
// emission; flows only classify.
package flows
