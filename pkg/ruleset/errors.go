package ruleset

import "errors"

var (
	// ErrNilRepository is returned when a provider is built without a
	// repository.
	ErrNilRepository = errors.New("rule repository is nil")

	// ErrNilProvider is returned when a decorator is built without a backing
	// provider.
	ErrNilProvider = errors.New("backing provider is nil")

	// ErrNilCache is returned when a caching provider is built without a cache.
	ErrNilCache = errors.New("rule set cache is nil")

	// ErrEmptyID is returned when a lookup has no rule set id.
	ErrEmptyID = errors.New("rule set id is empty")
)
