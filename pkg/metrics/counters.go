package metrics

import (
	"context"
	"sync/atomic"

	"github.com/fluxgate/fluxgate/pkg/limiter"
)

// Counters keeps in-process decision tallies. It implements
// limiter.Recorder for the allow/reject counts; the orchestrator bumps the
// wait and fail-open counters directly since those outcomes never reach a
// recorder.
type Counters struct {
	allowed  atomic.Int64
	rejected atomic.Int64
	waited   atomic.Int64
	failOpen atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Allowed  int64 `json:"allowed"`
	Rejected int64 `json:"rejected"`
	Waited   int64 `json:"waited"`
	FailOpen int64 `json:"failOpen"`
}

// NewCounters builds a zeroed counter set.
func NewCounters() *Counters { return &Counters{} }

// Record tallies one decision.
func (c *Counters) Record(_ context.Context, _ limiter.RequestContext, res limiter.Result) {
	if res.Allowed {
		c.allowed.Add(1)
	} else {
		c.rejected.Add(1)
	}
}

// AddWaited counts a request that slept for a refill.
func (c *Counters) AddWaited() { c.waited.Add(1) }

// AddFailOpen counts a request admitted because rate limiting failed.
func (c *Counters) AddFailOpen() { c.failOpen.Add(1) }

// Snapshot returns the current tallies.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Allowed:  c.allowed.Load(),
		Rejected: c.rejected.Load(),
		Waited:   c.waited.Load(),
		FailOpen: c.failOpen.Load(),
	}
}
