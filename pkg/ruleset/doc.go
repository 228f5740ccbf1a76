// Package ruleset assembles evaluable rule sets from the rule repository
// and caches them between reload events.
//
// The Provider reads every rule of a set from the repository, attaches the
// configured key resolver and metrics recorder and returns the assembled
// set, or nil when the set has no rules. CachingProvider decorates any
// provider with a bounded LRU cache so the request path only touches the
// repository on a miss; it doubles as a reload listener that drops cached
// sets when rules change.
package ruleset
