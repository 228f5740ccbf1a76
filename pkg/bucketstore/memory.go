package bucketstore

import (
	"context"
	"math"
	"math/bits"
	"strings"
	"sync"
	"time"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
)

// memoryBucket is the stored state of one band for one key.
type memoryBucket struct {
	tokens     int64
	refilledAt int64 // refill anchor, unix nanos
	expiresAt  int64 // unix nanos; stale state past this point
}

// MemoryStore implements Store in process memory. It applies the same
// integer refill arithmetic as the Redis scripts and is intended for tests
// and single-node deployments.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket

	now             func() time.Time
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the time source. Used by tests to drive refill math
// deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// WithCleanupInterval sets how often expired buckets are swept.
// Set to 0 to disable the sweeper.
func WithCleanupInterval(interval time.Duration) MemoryOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// NewMemoryStore creates an in-memory bucket store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*memoryBucket),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

// TryConsume atomically refills one bucket and takes permits from it.
func (ms *MemoryStore) TryConsume(ctx context.Context, key string, cfg Config, permits int64) (Result, error) {
	const op = "bucketstore.memory.TryConsume"

	if err := validateConsume(key, cfg, permits); err != nil {
		return Result{}, fluxerr.New(fluxerr.KindInvalidArgument, op, err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now().UnixNano()
	res, state := ms.decide(key, cfg, permits, now)
	if res.Consumed {
		state.expiresAt = now + cfg.TTL.Nanoseconds()
		ms.buckets[key] = state
	}
	return res, nil
}

// TryConsumeAll atomically takes permits from every bucket or from none.
func (ms *MemoryStore) TryConsumeAll(ctx context.Context, buckets []Bucket, permits int64) (MultiResult, error) {
	const op = "bucketstore.memory.TryConsumeAll"

	if err := validateBuckets(buckets, permits); err != nil {
		return MultiResult{}, fluxerr.New(fluxerr.KindInvalidArgument, op, err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now().UnixNano()
	results := make([]Result, len(buckets))
	states := make([]*memoryBucket, len(buckets))
	consumed := true
	for i, b := range buckets {
		results[i], states[i] = ms.decide(b.Key, b.Config, permits, now)
		if !results[i].Consumed {
			consumed = false
		}
	}

	if consumed {
		for i, b := range buckets {
			states[i].expiresAt = now + b.Config.TTL.Nanoseconds()
			ms.buckets[b.Key] = states[i]
		}
		return MultiResult{Consumed: true, Bands: results}, nil
	}

	// Nothing was written. Bands that individually had capacity report
	// their refilled, unconsumed counts.
	for i := range results {
		if !results[i].Consumed {
			continue
		}
		cfg := buckets[i].Config
		results[i].Consumed = false
		results[i].Remaining += permits
		results[i].ResetNanos = timeToFull(cfg, results[i].Remaining)
	}
	return MultiResult{Consumed: false, Bands: results}, nil
}

// PurgePrefix deletes all bucket state under the given key prefix.
func (ms *MemoryStore) PurgePrefix(ctx context.Context, prefix string) (int64, error) {
	const op = "bucketstore.memory.PurgePrefix"

	if !strings.HasPrefix(prefix, Namespace+":") {
		return 0, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrInvalidPrefix)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	var n int64
	for key := range ms.buckets {
		if strings.HasPrefix(key, prefix) {
			delete(ms.buckets, key)
			n++
		}
	}
	return n, nil
}

// Ping always succeeds for the in-memory store.
func (ms *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	select {
	case <-ms.stopCleanup:
		// Already closed
	default:
		close(ms.stopCleanup)
	}
}

// decide refills a copy of the bucket state and applies the consume rules.
// Callers persist the returned state only when the permits were taken, so a
// rejection leaves the stored bucket untouched.
func (ms *MemoryStore) decide(key string, cfg Config, permits, now int64) (Result, *memoryBucket) {
	b := memoryBucket{tokens: cfg.Capacity, refilledAt: now}
	if cur, ok := ms.buckets[key]; ok && cur.expiresAt > now {
		b = *cur
		refill(&b, cfg, now)
	}

	if b.tokens >= permits {
		b.tokens -= permits
		return Result{
			Consumed:   true,
			Remaining:  b.tokens,
			ResetNanos: timeToFull(cfg, b.tokens),
		}, &b
	}

	wait := mulDivCeil(permits-b.tokens, cfg.RefillInterval.Nanoseconds(), cfg.RefillTokens)
	return Result{
		Remaining:  b.tokens,
		WaitNanos:  wait,
		ResetNanos: wait,
	}, &b
}

// refill advances the bucket from elapsed time. The anchor moves by exactly
// the time the added tokens account for, so sub-interval fractions carry
// over to the next call instead of being truncated away.
func refill(b *memoryBucket, cfg Config, now int64) {
	elapsed := now - b.refilledAt
	if elapsed <= 0 {
		return
	}
	interval := cfg.RefillInterval.Nanoseconds()
	added := mulDiv(elapsed, cfg.RefillTokens, interval)
	if added <= 0 {
		return
	}
	if added >= cfg.Capacity-b.tokens {
		b.tokens = cfg.Capacity
	} else {
		b.tokens += added
	}
	b.refilledAt += mulDiv(added, interval, cfg.RefillTokens)
	if b.refilledAt > now {
		b.refilledAt = now
	}
}

func timeToFull(cfg Config, tokens int64) int64 {
	if tokens >= cfg.Capacity {
		return 0
	}
	return mulDivCeil(cfg.Capacity-tokens, cfg.RefillInterval.Nanoseconds(), cfg.RefillTokens)
}

// mulDiv returns floor(a*b/div) through a 128-bit intermediate so large
// windows and refill rates cannot overflow. Inputs must be non-negative and
// div positive; the result saturates at MaxInt64.
func mulDiv(a, b, div int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(div) {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, uint64(div))
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// mulDivCeil returns ceil(a*b/div) with the same contract as mulDiv.
func mulDivCeil(a, b, div int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(div) {
		return math.MaxInt64
	}
	q, r := bits.Div64(hi, lo, uint64(div))
	if r > 0 {
		q++
	}
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// cleanup runs periodically to drop expired buckets.
func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeExpired()
		case <-ms.stopCleanup:
			return
		}
	}
}

func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now().UnixNano()
	for key, b := range ms.buckets {
		if b.expiresAt <= now {
			delete(ms.buckets, key)
		}
	}
}
