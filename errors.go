package fluxgate

import "errors"

var (
	// ErrNilStore is returned when a gate is built without a bucket store.
	ErrNilStore = errors.New("bucket store is nil")

	// ErrNilProvider is returned when a gate is built without a rule set
	// provider.
	ErrNilProvider = errors.New("rule set provider is nil")

	// ErrMissingRuleSetID is returned when the configuration names no
	// default rule set.
	ErrMissingRuleSetID = errors.New("default rule set id is required")

	// ErrInvalidMissingRuleBehavior is returned for a missing-rule behavior
	// outside {ALLOW, DENY}.
	ErrInvalidMissingRuleBehavior = errors.New("missing rule behavior must be ALLOW or DENY")
)
