package limiter

import "errors"

var (
	// ErrNilStore is returned when a limiter is constructed without a store.
	ErrNilStore = errors.New("bucket store is nil")

	// ErrNilRuleSet is returned when evaluation is asked for a nil rule set.
	ErrNilRuleSet = errors.New("rule set is nil")

	// ErrInvalidPermits is returned when the permit count is not positive.
	ErrInvalidPermits = errors.New("permits must be positive")

	// ErrNoResolver is returned when neither the rule set nor the limiter
	// carries a key resolver.
	ErrNoResolver = errors.New("no key resolver configured")

	// ErrEmptyKey is returned when a resolver produces an empty bucket key.
	ErrEmptyKey = errors.New("resolved bucket key is empty")
)
