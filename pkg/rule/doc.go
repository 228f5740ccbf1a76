// Package rule defines the rate-limiting rule model shared by every FluxGate
// component: bands, rules, rule-set documents and their invariants.
//
// A Band is a single (capacity, window) rate constraint. A Rule groups one or
// more bands under a scope and an on-limit policy. Rules carrying the same
// RuleSetID form a rule set, which is what the request path evaluates.
//
// The package is purely data: repositories persist rules, providers assemble
// rule sets, and the limiter evaluates them. Validation lives here so that
// every write path rejects malformed rules the same way.
package rule
