package notify

import (
	"math"
	"math/rand"
	"time"
)

// backoff computes capped exponential reconnect delays with jitter, so a
// fleet of subscribers does not hammer a recovering broker in lockstep.
type backoff struct {
	initial time.Duration
	max     time.Duration
	jitter  float64
}

func defaultBackoff() backoff {
	return backoff{
		initial: 500 * time.Millisecond,
		max:     30 * time.Second,
		jitter:  0.2,
	}
}

// next returns the delay before reconnect attempt n (first attempt is 1):
// min(initial * 2^(n-1), max), spread by ±jitter.
func (b backoff) next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	d := float64(b.initial) * math.Pow(2, float64(attempt-1))
	if d > float64(b.max) {
		d = float64(b.max)
	}
	if b.jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.jitter
	}
	return time.Duration(d)
}
