package rule

import "errors"

var (
	// ErrInvalidRule indicates that a rule violates one of the model invariants.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrMissingID is returned when a rule has no identifier.
	ErrMissingID = errors.New("rule id is required")

	// ErrMissingRuleSetID is returned when a rule does not name a rule set.
	ErrMissingRuleSetID = errors.New("rule set id is required")

	// ErrNoBands is returned when a rule carries no bands.
	ErrNoBands = errors.New("rule requires at least one band")

	// ErrInvalidBand indicates a band with a non-positive capacity or window.
	ErrInvalidBand = errors.New("invalid band")

	// ErrInvalidScope is returned for an unknown scope value.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrInvalidPolicy is returned for an unknown on-limit policy value.
	ErrInvalidPolicy = errors.New("invalid on-limit policy")

	// ErrMissingKeyStrategy is returned when scope is CUSTOM but no key
	// strategy id is set.
	ErrMissingKeyStrategy = errors.New("custom scope requires a key strategy id")

	// ErrReservedCharacter is returned when an id contains a character used
	// as a bucket-key separator.
	ErrReservedCharacter = errors.New("id must not contain ':'")

	// ErrDuplicateBand is returned when two bands of a rule resolve to the
	// same bucket-key label.
	ErrDuplicateBand = errors.New("duplicate band label")
)
