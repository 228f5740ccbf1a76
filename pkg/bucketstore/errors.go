package bucketstore

import "errors"

var (
	// ErrNilClient is returned when a store is constructed without a client.
	ErrNilClient = errors.New("redis client is nil")

	// ErrEmptyKey is returned when a consume call has no bucket key.
	ErrEmptyKey = errors.New("bucket key is empty")

	// ErrInvalidCapacity is returned when capacity is not positive.
	ErrInvalidCapacity = errors.New("capacity must be positive")

	// ErrInvalidRefill is returned when refill tokens or interval are not positive.
	ErrInvalidRefill = errors.New("refill tokens and interval must be positive")

	// ErrInvalidTTL is returned when the bucket TTL is not positive.
	ErrInvalidTTL = errors.New("ttl must be positive")

	// ErrInvalidPermits is returned when the permit count is not positive.
	ErrInvalidPermits = errors.New("permits must be positive")

	// ErrNoBuckets is returned when a multi consume has no buckets.
	ErrNoBuckets = errors.New("no buckets to consume from")

	// ErrDuplicateKey is returned when a multi consume lists one key twice.
	ErrDuplicateKey = errors.New("duplicate bucket key in multi consume")

	// ErrInvalidPrefix is returned when a purge prefix is outside the
	// fluxgate namespace.
	ErrInvalidPrefix = errors.New("purge prefix must carry the fluxgate namespace")

	// ErrBadReply is returned when the script reply has an unexpected shape.
	ErrBadReply = errors.New("unexpected script reply shape")
)
