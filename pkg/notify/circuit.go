package notify

import (
	"sync"
	"time"
)

// circuitState is the breaker position.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// breaker is a small circuit breaker guarding the publish path. After
// enough consecutive failures it opens for a recovery window, during which
// publishes are suppressed instead of waiting on a dead broker. The first
// publish after the window half-opens the circuit; its outcome closes or
// reopens it. Safe for concurrent use.
type breaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryWindow   time.Duration

	state       circuitState
	failures    int
	lastFailure time.Time
}

func newBreaker(failureThreshold int, recoveryWindow time.Duration) *breaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if recoveryWindow <= 0 {
		recoveryWindow = 10 * time.Second
	}
	return &breaker{
		failureThreshold: failureThreshold,
		recoveryWindow:   recoveryWindow,
	}
}

// allow reports whether a publish may proceed, half-opening an expired
// circuit as a side effect.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitClosed, circuitHalfOpen:
		return true
	case circuitOpen:
		if time.Since(b.lastFailure) > b.recoveryWindow {
			b.state = circuitHalfOpen
			return true
		}
		return false
	}
	return false
}

// success records a completed publish and closes the circuit.
func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = circuitClosed
	b.failures = 0
}

// failure records a failed publish, opening the circuit at the threshold.
// A failure in the half-open probe reopens immediately.
func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	switch b.state {
	case circuitClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = circuitOpen
		}
	case circuitHalfOpen:
		b.state = circuitOpen
		b.failures = b.failureThreshold
	}
}
