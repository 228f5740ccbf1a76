package bucketstore_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fluxgate/fluxgate/pkg/bucketstore"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := bucketstore.Config{
		Capacity:       5,
		RefillTokens:   5,
		RefillInterval: time.Second,
		TTL:            time.Minute,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*bucketstore.Config)
		want   error
	}{
		{"zero capacity", func(c *bucketstore.Config) { c.Capacity = 0 }, bucketstore.ErrInvalidCapacity},
		{"negative capacity", func(c *bucketstore.Config) { c.Capacity = -1 }, bucketstore.ErrInvalidCapacity},
		{"zero refill tokens", func(c *bucketstore.Config) { c.RefillTokens = 0 }, bucketstore.ErrInvalidRefill},
		{"zero interval", func(c *bucketstore.Config) { c.RefillInterval = 0 }, bucketstore.ErrInvalidRefill},
		{"zero ttl", func(c *bucketstore.Config) { c.TTL = 0 }, bucketstore.ErrInvalidTTL},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestTTLFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1250*time.Millisecond, bucketstore.TTLFor(time.Second))
	assert.Equal(t, 75*time.Second, bucketstore.TTLFor(time.Minute))
	assert.Equal(t, bucketstore.DefaultMaxTTL, bucketstore.TTLFor(100*time.Hour))
	assert.Equal(t, bucketstore.DefaultMinTTL, bucketstore.TTLFor(10*time.Millisecond))
}

func TestResult_Durations(t *testing.T) {
	t.Parallel()

	r := bucketstore.Result{WaitNanos: 1_500_000_000, ResetNanos: 2_000_000_000}
	assert.Equal(t, 1500*time.Millisecond, r.Wait())
	assert.Equal(t, 2*time.Second, r.Reset())
}

func TestMultiResult_Aggregates(t *testing.T) {
	t.Parallel()

	empty := bucketstore.MultiResult{}
	assert.Equal(t, int64(-1), empty.MinRemaining())
	assert.Equal(t, int64(0), empty.MaxWait())

	m := bucketstore.MultiResult{Bands: []bucketstore.Result{
		{Remaining: 7, WaitNanos: 0},
		{Remaining: 2, WaitNanos: 400},
		{Remaining: 5, WaitNanos: 100},
	}}
	assert.Equal(t, int64(2), m.MinRemaining())
	assert.Equal(t, int64(400), m.MaxWait())
}

func TestKeys(t *testing.T) {
	t.Parallel()

	key := bucketstore.Key("rs-1", "api-heavy", "1.2.3.4", "default")
	assert.Equal(t, "fluxgate:rs-1:api-heavy:1.2.3.4:default", key)

	// IPv6 key values keep their colons; prefixes stay on the left of them.
	v6 := bucketstore.Key("rs-1", "api-heavy", "::1", "burst")
	assert.Equal(t, "fluxgate:rs-1:api-heavy:::1:burst", v6)

	assert.Equal(t, "fluxgate:rs-1:", bucketstore.SetPrefix("rs-1"))
	assert.Equal(t, "fluxgate:rs-1:api-heavy:", bucketstore.RulePrefix("rs-1", "api-heavy"))
	assert.Equal(t, "fluxgate:", bucketstore.AllPrefix())

	assert.True(t, strings.HasPrefix(key, bucketstore.RulePrefix("rs-1", "api-heavy")))
	assert.True(t, strings.HasPrefix(v6, bucketstore.SetPrefix("rs-1")))
}
