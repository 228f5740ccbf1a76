package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	b := newBreaker(3, time.Hour)

	for n := 0; n < 2; n++ {
		b.failure()
		assert.True(t, b.allow())
	}
	b.failure()
	assert.False(t, b.allow())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := newBreaker(3, time.Hour)

	b.failure()
	b.failure()
	b.success()

	// The streak restarts, so two more failures stay under the threshold.
	b.failure()
	b.failure()
	assert.True(t, b.allow())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	b := newBreaker(1, 10*time.Millisecond)
	b.failure()
	assert.False(t, b.allow())

	time.Sleep(20 * time.Millisecond)

	// One probe passes after the recovery window.
	assert.True(t, b.allow())

	// A failing probe reopens immediately.
	b.failure()
	assert.False(t, b.allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.allow())
	b.success()
	assert.True(t, b.allow())
}

func TestBackoff_Next(t *testing.T) {
	t.Parallel()

	b := backoff{initial: 100 * time.Millisecond, max: time.Second}

	assert.Equal(t, 100*time.Millisecond, b.next(1))
	assert.Equal(t, 200*time.Millisecond, b.next(2))
	assert.Equal(t, 400*time.Millisecond, b.next(3))
	assert.Equal(t, time.Second, b.next(5))
	assert.Equal(t, time.Second, b.next(50))
	assert.Zero(t, b.next(0))
}

func TestBackoff_JitterStaysBounded(t *testing.T) {
	t.Parallel()

	b := defaultBackoff()
	for attempt := 1; attempt <= 10; attempt++ {
		d := b.next(attempt)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, time.Duration(float64(b.max)*1.2))
	}
}

func TestSubscriber_DuplicateWindow(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := &Subscriber{now: func() time.Time { return now }}

	assert.False(t, s.duplicate(`{"ruleSetId":"api"}`))
	assert.True(t, s.duplicate(`{"ruleSetId":"api"}`))
	assert.False(t, s.duplicate(`{"ruleSetId":"other"}`))

	// The same payload outside the window is not a duplicate.
	assert.False(t, s.duplicate(`{"ruleSetId":"api"}`))
	now = now.Add(DedupWindow + time.Millisecond)
	assert.False(t, s.duplicate(`{"ruleSetId":"api"}`))
}
