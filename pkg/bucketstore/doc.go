// Package bucketstore provides atomic token bucket storage for distributed
// rate limiting.
//
// A bucket holds a token count and a refill anchor. Consuming permits refills
// the bucket from elapsed time first, then takes the permits if enough tokens
// remain. The arithmetic is integer-only: the refill anchor advances by the
// exact time the added tokens account for, so sub-interval fractions
// accumulate instead of being truncated away. A rejected consume never writes
// state back.
//
// # Stores
//
// RedisStore executes the refill+consume cycle as a server-side script, so
// concurrent callers on distinct nodes never overspend a bucket. The script
// reads server time from Redis itself, which removes cross-node clock drift
// from the decision. Scripts are uploaded once when the store opens and are
// invoked by content hash; a NOSCRIPT reply (script cache flushed, failover
// to a fresh replica) triggers exactly one re-upload and retry.
//
//	store, err := bucketstore.NewRedisStore(ctx, client)
//	if err != nil {
//		return err
//	}
//
//	res, err := store.TryConsume(ctx, key, bucketstore.Config{
//		Capacity:       100,
//		RefillTokens:   100,
//		RefillInterval: time.Minute,
//		TTL:            bucketstore.TTLFor(time.Minute),
//	}, 1)
//
// MemoryStore keeps buckets in process memory behind a mutex. It implements
// the same contract with the same arithmetic and is intended for tests and
// single-node deployments:
//
//	store := bucketstore.NewMemoryStore()
//	defer store.Close()
//
// # Multi-band consumption
//
// Rules with several bands (for example 10/s and 100/min on the same key)
// must commit or reject together: when the minute band rejects, the second
// band must not lose tokens. TryConsumeAll evaluates every band in one
// atomic step and only writes when all of them can take the permits:
//
//	res, err := store.TryConsumeAll(ctx, []bucketstore.Bucket{
//		{Key: secKey, Config: secCfg},
//		{Key: minKey, Config: minCfg},
//	}, 1)
//
// # Keys
//
// Bucket keys follow a fixed layout, fluxgate:{ruleSet}:{rule}:{key}:{band},
// built by Key and friends. Prefix helpers feed PurgePrefix, which deletes
// bucket state after rules change so stale capacities do not linger.
//
// # Expiry
//
// Every successful consume refreshes the bucket TTL. TTLFor derives the TTL
// from the band window with a safety margin against clock skew and caps it
// so long windows do not pin keys forever.
package bucketstore
