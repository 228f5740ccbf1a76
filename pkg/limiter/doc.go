// Package limiter evaluates rule sets against request contexts and produces
// a single allow or reject decision per request.
//
// A RuleSet is an ordered collection of rules assembled by a provider. For
// every enabled rule the limiter resolves one bucket key through the set's
// KeyResolver and consumes from all of the rule's bands in a single
// all-or-nothing store call, so a band that still has capacity is never
// drained by a sibling band that does not. Rules are evaluated in set order
// and evaluation stops at the first rejecting rule.
//
// Decisions are reported to an optional Recorder. Recorder failures are
// isolated and never influence the decision.
package limiter
