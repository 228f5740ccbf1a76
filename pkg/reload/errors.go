package reload

import "errors"

var (
	// ErrAlreadyRunning is returned when Start is called on a running strategy.
	ErrAlreadyRunning = errors.New("reload strategy already running")

	// ErrNilProvider is returned when a polling strategy is built without a
	// rule set source.
	ErrNilProvider = errors.New("rule set provider is nil")

	// ErrNilCacheView is returned when a polling strategy is built without a
	// cached-id source.
	ErrNilCacheView = errors.New("cache view is nil")

	// ErrNilSubscriber is returned when a pubsub strategy is built without a
	// subscriber.
	ErrNilSubscriber = errors.New("subscriber is nil")

	// ErrNilStore is returned when a reset handler is built without a store.
	ErrNilStore = errors.New("bucket store is nil")

	// ErrUnknownStrategy is returned for a strategy name outside
	// {POLLING, PUBSUB, NONE}.
	ErrUnknownStrategy = errors.New("reload strategy must be POLLING, PUBSUB or NONE")
)
