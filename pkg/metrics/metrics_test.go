package metrics_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate/fluxgate/pkg/limiter"
	"github.com/fluxgate/fluxgate/pkg/metrics"
)

func TestCounters_Record(t *testing.T) {
	t.Parallel()

	c := metrics.NewCounters()
	rc := limiter.NewRequestContext(limiter.RequestParams{ClientIP: "10.0.0.1"})

	c.Record(context.Background(), rc, limiter.Result{Allowed: true})
	c.Record(context.Background(), rc, limiter.Result{Allowed: true})
	c.Record(context.Background(), rc, limiter.Result{Allowed: false})
	c.AddWaited()
	c.AddFailOpen()

	snap := c.Snapshot()
	assert.EqualValues(t, 2, snap.Allowed)
	assert.EqualValues(t, 1, snap.Rejected)
	assert.EqualValues(t, 1, snap.Waited)
	assert.EqualValues(t, 1, snap.FailOpen)
}

type countingRecorder struct {
	calls atomic.Int64
	panic bool
}

func (r *countingRecorder) Record(context.Context, limiter.RequestContext, limiter.Result) {
	r.calls.Add(1)
	if r.panic {
		panic("recorder exploded")
	}
}

func TestComposite_FansOutAndIsolates(t *testing.T) {
	t.Parallel()

	broken := &countingRecorder{panic: true}
	healthy := &countingRecorder{}
	c := metrics.NewComposite(nil, broken, nil, healthy)

	rc := limiter.NewRequestContext(limiter.RequestParams{})
	require.NotPanics(t, func() {
		c.Record(context.Background(), rc, limiter.Result{Allowed: true})
	})

	assert.EqualValues(t, 1, broken.calls.Load())
	assert.EqualValues(t, 1, healthy.calls.Load())
}

func TestSlogRecorder_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sr := metrics.NewSlogRecorder(log)

	rc := limiter.NewRequestContext(limiter.RequestParams{Endpoint: "/api/users", Method: "GET"})

	// Allows log at debug and stay below the info threshold.
	sr.Record(context.Background(), rc, limiter.Result{Allowed: true, Remaining: 5})
	assert.Empty(t, buf.String())

	sr.Record(context.Background(), rc, limiter.Result{Allowed: false, Remaining: 0})
	out := buf.String()
	assert.Contains(t, out, "request rate limited")
	assert.Contains(t, out, "/api/users")
}
