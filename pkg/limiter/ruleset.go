package limiter

import (
	"context"
	"time"

	"github.com/fluxgate/fluxgate/pkg/rule"
)

// RuleSet is an ordered collection of rules evaluated together under one
// key resolver. Providers assemble rule sets on read; the limiter treats
// them as read-only.
type RuleSet struct {
	ID          string
	Description string
	Rules       []rule.Rule
	Resolver    KeyResolver
	Recorder    Recorder
}

// Evaluable reports whether the set contains at least one enabled rule
// with bands.
func (s *RuleSet) Evaluable() bool {
	for _, r := range s.Rules {
		if r.Evaluable() {
			return true
		}
	}
	return false
}

// Doc returns the storage-shaped form of the set, used for change
// fingerprinting.
func (s *RuleSet) Doc() rule.SetDoc {
	return rule.SetDoc{ID: s.ID, Description: s.Description, Rules: s.Rules}
}

// Result is the aggregated outcome of evaluating one rule set.
type Result struct {
	// Allowed reports whether every evaluated band admitted the permits.
	Allowed bool
	// MatchedKey is the resolved bucket key of MatchedRule.
	MatchedKey string
	// MatchedRule identifies the first rejecting rule on rejection, or the
	// first enabled rule on allow. Nil when no rule was evaluated.
	MatchedRule *rule.Rule
	// Remaining is the smallest remaining token count across evaluated
	// bands, or -1 when nothing was evaluated.
	Remaining int64
	// WaitFor is how long until the rejecting rule has capacity again.
	// Zero on allow.
	WaitFor time.Duration
}

// RetryAfter returns WaitFor rounded up to whole seconds, as emitted in the
// Retry-After response header. At least one second for any positive wait.
func (r Result) RetryAfter() int64 {
	if r.WaitFor <= 0 {
		return 0
	}
	s := int64(r.WaitFor / time.Second)
	if r.WaitFor%time.Second != 0 {
		s++
	}
	return s
}

// Policy returns the on-limit policy of the matched rule, defaulting to
// immediate rejection when no rule matched.
func (r Result) Policy() rule.Policy {
	if r.MatchedRule == nil {
		return rule.PolicyReject
	}
	return r.MatchedRule.Policy
}

// Recorder observes rate-limit decisions after they are made. Implementations
// must tolerate concurrent calls; errors and panics are isolated by the
// caller and never change the decision.
type Recorder interface {
	Record(ctx context.Context, rc RequestContext, res Result)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, rc RequestContext, res Result)

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, rc RequestContext, res Result) {
	f(ctx, rc, res)
}
