package bucketstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
)

const (
	purgeScanCount = 512
	purgeBatchSize = 128
)

// RedisClient is the subset of redis.UniversalClient the store relies on.
type RedisClient interface {
	EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd
	ScriptLoad(ctx context.Context, script string) *redis.StringCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Unlink(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore executes token bucket decisions as server-side scripts against
// a shared Redis, keeping refill and consume atomic across nodes.
type RedisStore struct {
	client       RedisClient
	consume      *script
	consumeMulti *script
}

// NewRedisStore wraps an established client and uploads the bucket scripts.
func NewRedisStore(ctx context.Context, client RedisClient) (*RedisStore, error) {
	const op = "bucketstore.NewRedisStore"

	if client == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrNilClient)
	}

	s := &RedisStore{
		client:       client,
		consume:      newScript(luaConsume),
		consumeMulti: newScript(luaConsumeMulti),
	}
	for _, sc := range []*script{s.consume, s.consumeMulti} {
		if err := sc.load(ctx, client); err != nil {
			return nil, classify(op, err)
		}
	}
	return s, nil
}

// TryConsume atomically refills one bucket and takes permits from it.
func (s *RedisStore) TryConsume(ctx context.Context, key string, cfg Config, permits int64) (Result, error) {
	const op = "bucketstore.TryConsume"

	if err := validateConsume(key, cfg, permits); err != nil {
		return Result{}, fluxerr.New(fluxerr.KindInvalidArgument, op, err)
	}

	v, err := s.consume.run(ctx, s.client, []string{key},
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Nanoseconds(),
		permits,
		ttlSeconds(cfg.TTL),
	)
	if err != nil {
		return Result{}, classify(op, err)
	}

	res, err := parseConsumeReply(v)
	if err != nil {
		return Result{}, fluxerr.New(fluxerr.KindScriptExecution, op, err)
	}
	return res, nil
}

// TryConsumeAll atomically takes permits from every bucket or from none.
func (s *RedisStore) TryConsumeAll(ctx context.Context, buckets []Bucket, permits int64) (MultiResult, error) {
	const op = "bucketstore.TryConsumeAll"

	if err := validateBuckets(buckets, permits); err != nil {
		return MultiResult{}, fluxerr.New(fluxerr.KindInvalidArgument, op, err)
	}

	keys := make([]string, len(buckets))
	args := make([]any, 0, 1+4*len(buckets))
	args = append(args, permits)
	for i, b := range buckets {
		keys[i] = b.Key
		args = append(args,
			b.Config.Capacity,
			b.Config.RefillTokens,
			b.Config.RefillInterval.Nanoseconds(),
			ttlSeconds(b.Config.TTL),
		)
	}

	v, err := s.consumeMulti.run(ctx, s.client, keys, args...)
	if err != nil {
		return MultiResult{}, classify(op, err)
	}

	res, err := parseMultiReply(v, len(buckets))
	if err != nil {
		return MultiResult{}, fluxerr.New(fluxerr.KindScriptExecution, op, err)
	}
	return res, nil
}

// PurgePrefix deletes all bucket keys under the prefix. On a cluster client
// every master is scanned; standalone and sentinel clients scan directly.
func (s *RedisStore) PurgePrefix(ctx context.Context, prefix string) (int64, error) {
	const op = "bucketstore.PurgePrefix"

	if !strings.HasPrefix(prefix, Namespace+":") {
		return 0, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrInvalidPrefix)
	}

	if cc, ok := s.client.(*redis.ClusterClient); ok {
		var total atomic.Int64
		err := cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			n, err := purgeKeys(ctx, node, prefix)
			total.Add(n)
			return err
		})
		if err != nil {
			return total.Load(), classify(op, err)
		}
		return total.Load(), nil
	}

	n, err := purgeKeys(ctx, s.client, prefix)
	if err != nil {
		return n, classify(op, err)
	}
	return n, nil
}

// Ping verifies the store is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	const op = "bucketstore.Ping"

	if err := s.client.Ping(ctx).Err(); err != nil {
		return classify(op, err)
	}
	return nil
}

type scanUnlinker interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Unlink(ctx context.Context, keys ...string) *redis.IntCmd
}

func purgeKeys(ctx context.Context, c scanUnlinker, prefix string) (int64, error) {
	var total int64
	batch := make([]string, 0, purgeBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.Unlink(ctx, batch...).Result()
		total += n
		batch = batch[:0]
		return err
	}

	iter := c.Scan(ctx, 0, prefix+"*", purgeScanCount).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= purgeBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// classify maps transport and server failures onto the error taxonomy:
// context expiry becomes a timeout, a reply from the server itself means the
// script ran and failed, anything else is a connection problem.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fluxerr.New(fluxerr.KindTimeout, op, err)
	}
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return fluxerr.New(fluxerr.KindScriptExecution, op, err)
	}
	return fluxerr.New(fluxerr.KindStoreConnection, op, err)
}

func parseConsumeReply(v any) (Result, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 4 {
		return Result{}, fmt.Errorf("%w: want 4 elements, got %T", ErrBadReply, v)
	}
	vals, err := asInt64s(arr)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Consumed:   vals[0] == 1,
		Remaining:  vals[1],
		WaitNanos:  vals[2],
		ResetNanos: vals[3],
	}, nil
}

func parseMultiReply(v any, bands int) (MultiResult, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 1+3*bands {
		return MultiResult{}, fmt.Errorf("%w: want %d elements, got %T", ErrBadReply, 1+3*bands, v)
	}
	vals, err := asInt64s(arr)
	if err != nil {
		return MultiResult{}, err
	}

	res := MultiResult{
		Consumed: vals[0] == 1,
		Bands:    make([]Result, bands),
	}
	for i := 0; i < bands; i++ {
		base := 1 + i*3
		res.Bands[i] = Result{
			Consumed:   res.Consumed,
			Remaining:  vals[base],
			WaitNanos:  vals[base+1],
			ResetNanos: vals[base+2],
		}
	}
	return res, nil
}

func asInt64s(arr []any) ([]int64, error) {
	vals := make([]int64, len(arr))
	for i, v := range arr {
		switch n := v.(type) {
		case int64:
			vals[i] = n
		case string:
			parsed, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: element %d: %v", ErrBadReply, i, err)
			}
			vals[i] = parsed
		default:
			return nil, fmt.Errorf("%w: element %d is %T", ErrBadReply, i, v)
		}
	}
	return vals, nil
}
