// Package syncer orchestrates bidirectional reconciliation between the
// local store and the remote service, one coordinator per feature area
// (nutrition log, daily survey, body measurement).
//
// Each coordinator runs two independent cycles:
//
//	push: idle -> pushing -> idle
//	pull: idle -> pulling -> idle
//
// An in-flight guard prevents overlapping cycles of the same kind, and
// an injected RateLimiter enforces a minimum interval between automatic
// attempts for the same scope (force bypasses it). The cycles are not
// mutually exclusive; the pull path defends local edits by never
// overwriting dirty rows (enforced in the store layer).
//
// Failure semantics: network and remote errors are caught here, logged
// with context, and surfaced to callers only as the coarse StatusLocal.
// Being logged out is not an error; a push without a credential simply
// reports StatusLocal.
package syncer
