package bucketstore

import (
	"context"
	"time"
)

const (
	// DefaultMaxTTL caps derived bucket TTLs so long windows do not pin
	// keys in the store forever.
	DefaultMaxTTL = 24 * time.Hour

	// DefaultMinTTL is the smallest TTL a bucket is stored with.
	DefaultMinTTL = time.Second
)

// Config describes one token bucket band.
type Config struct {
	// Capacity is the maximum number of tokens the bucket holds.
	Capacity int64
	// RefillTokens is the number of tokens added per RefillInterval.
	RefillTokens int64
	// RefillInterval is the period over which RefillTokens accrue.
	RefillInterval time.Duration
	// TTL bounds how long idle bucket state survives in the store.
	TTL time.Duration
}

// Validate checks that the configuration describes a usable bucket.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if c.RefillTokens <= 0 || c.RefillInterval <= 0 {
		return ErrInvalidRefill
	}
	if c.TTL <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

// Bucket pairs a storage key with its band configuration for multi-band
// consumption.
type Bucket struct {
	Key    string
	Config Config
}

// Result is the outcome of a consume attempt against one bucket.
type Result struct {
	// Consumed reports whether the permits were taken.
	Consumed bool
	// Remaining is the token count after the call. On rejection it is the
	// refilled count, untouched.
	Remaining int64
	// WaitNanos is how long until enough tokens accrue for the rejected
	// permits. Zero when consumed.
	WaitNanos int64
	// ResetNanos is how long until the bucket is full again. On rejection
	// it equals WaitNanos.
	ResetNanos int64
}

// Wait returns WaitNanos as a duration.
func (r Result) Wait() time.Duration { return time.Duration(r.WaitNanos) }

// Reset returns ResetNanos as a duration.
func (r Result) Reset() time.Duration { return time.Duration(r.ResetNanos) }

// MultiResult is the outcome of an all-or-nothing consume across the bands
// of one rule.
type MultiResult struct {
	// Consumed reports whether every band took the permits.
	Consumed bool
	// Bands holds one result per requested bucket, in request order.
	Bands []Result
}

// MinRemaining returns the smallest remaining token count across bands,
// or -1 when there are none.
func (m MultiResult) MinRemaining() int64 {
	if len(m.Bands) == 0 {
		return -1
	}
	min := m.Bands[0].Remaining
	for _, b := range m.Bands[1:] {
		if b.Remaining < min {
			min = b.Remaining
		}
	}
	return min
}

// MaxWait returns the longest wait across rejecting bands, zero when every
// band had capacity.
func (m MultiResult) MaxWait() int64 {
	var max int64
	for _, b := range m.Bands {
		if b.WaitNanos > max {
			max = b.WaitNanos
		}
	}
	return max
}

// Store is the storage contract for token bucket decisions.
type Store interface {
	// TryConsume atomically refills one bucket and takes permits from it.
	// A rejected call does not mutate stored state.
	TryConsume(ctx context.Context, key string, cfg Config, permits int64) (Result, error)

	// TryConsumeAll atomically takes permits from every bucket, or from
	// none when any of them lacks tokens.
	TryConsumeAll(ctx context.Context, buckets []Bucket, permits int64) (MultiResult, error)

	// PurgePrefix deletes all bucket state under the given key prefix and
	// returns the number of removed keys.
	PurgePrefix(ctx context.Context, prefix string) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// TTLFor derives a bucket TTL from a band window: the window plus a 25%
// safety margin against clock skew, clamped to [DefaultMinTTL, DefaultMaxTTL].
func TTLFor(window time.Duration) time.Duration {
	ttl := window + window/4
	if ttl > DefaultMaxTTL {
		return DefaultMaxTTL
	}
	if ttl < DefaultMinTTL {
		return DefaultMinTTL
	}
	return ttl
}

// ttlSeconds rounds a TTL up to whole seconds for the store, never below one.
func ttlSeconds(ttl time.Duration) int64 {
	s := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		s++
	}
	if s < 1 {
		s = 1
	}
	return s
}

func validateConsume(key string, cfg Config, permits int64) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if permits <= 0 {
		return ErrInvalidPermits
	}
	return nil
}

func validateBuckets(buckets []Bucket, permits int64) error {
	if len(buckets) == 0 {
		return ErrNoBuckets
	}
	seen := make(map[string]struct{}, len(buckets))
	for _, b := range buckets {
		if err := validateConsume(b.Key, b.Config, permits); err != nil {
			return err
		}
		if _, dup := seen[b.Key]; dup {
			return ErrDuplicateKey
		}
		seen[b.Key] = struct{}{}
	}
	return nil
}
