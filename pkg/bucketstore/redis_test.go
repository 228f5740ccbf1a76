package bucketstore_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate/fluxgate/pkg/bucketstore"
	"github.com/fluxgate/fluxgate/pkg/fluxerr"
)

// redisServerError mimics an error reply coming from the server itself.
type redisServerError string

func (e redisServerError) Error() string { return string(e) }
func (e redisServerError) RedisError()   {}

type scriptedReply struct {
	val any
	err error
}

type evalCall struct {
	sha  string
	keys []string
	args []any
}

type fakeRedis struct {
	mu        sync.Mutex
	replies   []scriptedReply
	evalCalls []evalCall
	loads     []string
	scanKeys  []string
	unlinked  [][]string
	pingErr   error
}

func (f *fakeRedis) EvalSha(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalCalls = append(f.evalCalls, evalCall{sha: sha, keys: keys, args: args})
	if len(f.replies) == 0 {
		return redis.NewCmdResult(nil, errors.New("no scripted reply"))
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return redis.NewCmdResult(r.val, r.err)
}

func (f *fakeRedis) ScriptLoad(ctx context.Context, src string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, src)
	sum := sha1.Sum([]byte(src))
	return redis.NewStringResult(hex.EncodeToString(sum[:]), nil)
}

func (f *fakeRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var page []string
	for _, k := range f.scanKeys {
		if strings.HasPrefix(k, prefix) {
			page = append(page, k)
		}
	}
	return redis.NewScanCmdResult(page, 0, nil)
}

func (f *fakeRedis) Unlink(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlinked = append(f.unlinked, keys)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.pingErr)
}

func newRedisStore(t *testing.T, fake *fakeRedis) *bucketstore.RedisStore {
	t.Helper()
	store, err := bucketstore.NewRedisStore(context.Background(), fake)
	require.NoError(t, err)
	return store
}

func testConfig() bucketstore.Config {
	return bucketstore.Config{
		Capacity:       10,
		RefillTokens:   10,
		RefillInterval: time.Second,
		TTL:            1250 * time.Millisecond,
	}
}

func TestNewRedisStore(t *testing.T) {
	t.Parallel()

	t.Run("nil client", func(t *testing.T) {
		t.Parallel()
		_, err := bucketstore.NewRedisStore(context.Background(), nil)
		assert.ErrorIs(t, err, bucketstore.ErrNilClient)
		assert.Equal(t, fluxerr.KindInvalidArgument, fluxerr.KindOf(err))
	})

	t.Run("uploads both scripts", func(t *testing.T) {
		t.Parallel()
		fake := &fakeRedis{}
		newRedisStore(t, fake)
		assert.Len(t, fake.loads, 2)
	})
}

func TestRedisStore_TryConsume(t *testing.T) {
	t.Parallel()

	t.Run("passes arguments and parses the reply", func(t *testing.T) {
		t.Parallel()
		fake := &fakeRedis{replies: []scriptedReply{
			{val: []any{int64(1), int64(9), int64(0), int64(100_000_000)}},
		}}
		store := newRedisStore(t, fake)

		res, err := store.TryConsume(context.Background(), "fluxgate:rs:r:k:default", testConfig(), 1)
		require.NoError(t, err)
		assert.True(t, res.Consumed)
		assert.Equal(t, int64(9), res.Remaining)
		assert.Equal(t, int64(0), res.WaitNanos)
		assert.Equal(t, int64(100_000_000), res.ResetNanos)

		require.Len(t, fake.evalCalls, 1)
		call := fake.evalCalls[0]
		assert.Equal(t, []string{"fluxgate:rs:r:k:default"}, call.keys)
		// capacity, refill tokens, interval nanos, permits, ttl rounded up
		// to whole seconds.
		assert.Equal(t, []any{int64(10), int64(10), int64(1_000_000_000), int64(1), int64(2)}, call.args)
	})

	t.Run("reuploads once on NOSCRIPT", func(t *testing.T) {
		t.Parallel()
		fake := &fakeRedis{replies: []scriptedReply{
			{err: redisServerError("NOSCRIPT No matching script. Please use EVAL.")},
			{val: []any{int64(0), int64(0), int64(100_000_000), int64(100_000_000)}},
		}}
		store := newRedisStore(t, fake)

		res, err := store.TryConsume(context.Background(), "k:default", testConfig(), 1)
		require.NoError(t, err)
		assert.False(t, res.Consumed)
		assert.Len(t, fake.evalCalls, 2)
		assert.Len(t, fake.loads, 3)
	})

	t.Run("script errors are retryable script failures", func(t *testing.T) {
		t.Parallel()
		fake := &fakeRedis{replies: []scriptedReply{
			{err: redisServerError("ERR user_script:7: attempt to compare nil")},
		}}
		store := newRedisStore(t, fake)

		_, err := store.TryConsume(context.Background(), "k", testConfig(), 1)
		require.Error(t, err)
		assert.Equal(t, fluxerr.KindScriptExecution, fluxerr.KindOf(err))
		assert.True(t, fluxerr.IsRetryable(err))
	})

	t.Run("transport errors map to store connection", func(t *testing.T) {
		t.Parallel()
		fake := &fakeRedis{replies: []scriptedReply{
			{err: errors.New("dial tcp 10.0.0.1:6379: connection refused")},
		}}
		store := newRedisStore(t, fake)

		_, err := store.TryConsume(context.Background(), "k", testConfig(), 1)
		require.Error(t, err)
		assert.Equal(t, fluxerr.KindStoreConnection, fluxerr.KindOf(err))
		assert.True(t, fluxerr.IsRetryable(err))
	})

	t.Run("context expiry maps to timeout", func(t *testing.T) {
		t.Parallel()
		fake := &fakeRedis{replies: []scriptedReply{
			{err: fmt.Errorf("read: %w", context.DeadlineExceeded)},
		}}
		store := newRedisStore(t, fake)

		_, err := store.TryConsume(context.Background(), "k", testConfig(), 1)
		require.Error(t, err)
		assert.Equal(t, fluxerr.KindTimeout, fluxerr.KindOf(err))
	})

	t.Run("malformed reply", func(t *testing.T) {
		t.Parallel()
		fake := &fakeRedis{replies: []scriptedReply{
			{val: []any{int64(1)}},
		}}
		store := newRedisStore(t, fake)

		_, err := store.TryConsume(context.Background(), "k", testConfig(), 1)
		assert.ErrorIs(t, err, bucketstore.ErrBadReply)
		assert.Equal(t, fluxerr.KindScriptExecution, fluxerr.KindOf(err))
	})

	t.Run("rejects invalid arguments locally", func(t *testing.T) {
		t.Parallel()
		store := newRedisStore(t, &fakeRedis{})

		_, err := store.TryConsume(context.Background(), "", testConfig(), 1)
		assert.ErrorIs(t, err, bucketstore.ErrEmptyKey)
		assert.False(t, fluxerr.IsRetryable(err))
	})
}

func TestRedisStore_TryConsumeAll(t *testing.T) {
	t.Parallel()

	fake := &fakeRedis{replies: []scriptedReply{
		{val: []any{
			int64(1),
			int64(9), int64(0), int64(100_000_000),
			int64(99), int64(0), int64(10_000_000),
		}},
	}}
	store := newRedisStore(t, fake)

	secCfg := testConfig()
	minCfg := bucketstore.Config{
		Capacity:       100,
		RefillTokens:   100,
		RefillInterval: time.Minute,
		TTL:            75 * time.Second,
	}
	res, err := store.TryConsumeAll(context.Background(), []bucketstore.Bucket{
		{Key: "fluxgate:rs:r:k:sec", Config: secCfg},
		{Key: "fluxgate:rs:r:k:min", Config: minCfg},
	}, 1)
	require.NoError(t, err)

	assert.True(t, res.Consumed)
	require.Len(t, res.Bands, 2)
	assert.Equal(t, int64(9), res.Bands[0].Remaining)
	assert.Equal(t, int64(99), res.Bands[1].Remaining)
	assert.True(t, res.Bands[0].Consumed)
	assert.Equal(t, int64(9), res.MinRemaining())

	require.Len(t, fake.evalCalls, 1)
	call := fake.evalCalls[0]
	assert.Equal(t, []string{"fluxgate:rs:r:k:sec", "fluxgate:rs:r:k:min"}, call.keys)
	assert.Equal(t, []any{
		int64(1),
		int64(10), int64(10), int64(1_000_000_000), int64(2),
		int64(100), int64(100), int64(60_000_000_000), int64(75),
	}, call.args)
}

func TestRedisStore_PurgePrefix(t *testing.T) {
	t.Parallel()

	t.Run("deletes matching keys in batches", func(t *testing.T) {
		t.Parallel()
		fake := &fakeRedis{}
		for i := 0; i < 130; i++ {
			fake.scanKeys = append(fake.scanKeys, fmt.Sprintf("fluxgate:rs1:r:%d:default", i))
		}
		fake.scanKeys = append(fake.scanKeys, "fluxgate:rs2:r:a:default")
		store := newRedisStore(t, fake)

		n, err := store.PurgePrefix(context.Background(), bucketstore.SetPrefix("rs1"))
		require.NoError(t, err)
		assert.Equal(t, int64(130), n)
		require.Len(t, fake.unlinked, 2)
		assert.Len(t, fake.unlinked[0], 128)
		assert.Len(t, fake.unlinked[1], 2)
	})

	t.Run("refuses prefixes outside the namespace", func(t *testing.T) {
		t.Parallel()
		store := newRedisStore(t, &fakeRedis{})

		_, err := store.PurgePrefix(context.Background(), "sessions:")
		assert.ErrorIs(t, err, bucketstore.ErrInvalidPrefix)
	})
}

func TestRedisStore_Ping(t *testing.T) {
	t.Parallel()

	store := newRedisStore(t, &fakeRedis{})
	assert.NoError(t, store.Ping(context.Background()))

	fake := &fakeRedis{pingErr: errors.New("connection reset")}
	store = newRedisStore(t, fake)
	err := store.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, fluxerr.KindStoreConnection, fluxerr.KindOf(err))
}
