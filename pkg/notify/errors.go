package notify

import "errors"

var (
	// ErrNilClient is returned when a publisher or subscriber is built
	// without a Redis client.
	ErrNilClient = errors.New("redis client is nil")

	// ErrNilHandler is returned when Subscribe is called without a handler.
	ErrNilHandler = errors.New("message handler is nil")

	// ErrPublishSuppressed is returned when the circuit breaker is open and
	// the publish was not attempted.
	ErrPublishSuppressed = errors.New("publish suppressed by open circuit breaker")

	// ErrClosed is returned when the subscriber has been closed.
	ErrClosed = errors.New("subscriber is closed")
)
