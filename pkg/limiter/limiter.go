package limiter

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fluxgate/fluxgate/pkg/bucketstore"
	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/rule"
)

// Limiter folds the bucket decisions of every enabled rule in a set into a
// single per-request result.
type Limiter struct {
	store    bucketstore.Store
	resolver KeyResolver
	log      *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithResolver sets the resolver used when a rule set carries none.
func WithResolver(r KeyResolver) Option {
	return func(l *Limiter) {
		if r != nil {
			l.resolver = r
		}
	}
}

// WithLogger sets the limiter's logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// New builds a limiter on top of a bucket store. The default key resolver
// is the scope resolver; rule sets may override it per set.
func New(store bucketstore.Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "limiter.New", ErrNilStore)
	}

	l := &Limiter{
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.resolver == nil {
		l.resolver = NewScopeResolver(l.log)
	}
	return l, nil
}

// TryConsume evaluates the rule set against the request and takes permits
// from every band of every enabled rule, in set order.
//
// All bands of one rule commit or reject together in a single store call.
// Evaluation stops at the first rejecting rule, which leaves the rules after
// it untouched; rules already evaluated keep their consumed permits (there
// is no cross-rule rollback).
func (l *Limiter) TryConsume(ctx context.Context, rc RequestContext, set *RuleSet, permits int64) (Result, error) {
	const op = "limiter.TryConsume"

	if set == nil {
		return Result{}, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrNilRuleSet)
	}
	if permits <= 0 {
		return Result{}, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrInvalidPermits)
	}

	resolver := set.Resolver
	if resolver == nil {
		resolver = l.resolver
	}
	if resolver == nil {
		return Result{}, fluxerr.New(fluxerr.KindConfigMissing, op, ErrNoResolver)
	}

	res := Result{Allowed: true, Remaining: -1}
	evaluated := false

	for i := range set.Rules {
		r := &set.Rules[i]
		if !r.Evaluable() {
			continue
		}

		key, err := resolver.Resolve(ctx, rc, *r)
		if err != nil {
			return Result{}, fluxerr.New(fluxerr.KindRuleExecution, op, err)
		}
		if key == "" {
			return Result{}, fluxerr.New(fluxerr.KindInvalidKey, op, ErrEmptyKey)
		}

		multi, err := l.store.TryConsumeAll(ctx, buckets(set.ID, r, key), permits)
		if err != nil {
			return Result{}, err
		}

		if !evaluated {
			evaluated = true
			res.MatchedKey = key
			res.MatchedRule = r
			res.Remaining = multi.MinRemaining()
		} else if min := multi.MinRemaining(); min < res.Remaining {
			res.Remaining = min
		}

		if !multi.Consumed {
			res.Allowed = false
			res.MatchedKey = key
			res.MatchedRule = r
			res.WaitFor = time.Duration(multi.MaxWait())
			break
		}
	}

	l.record(ctx, set, rc, res)
	return res, nil
}

// record reports the decision to the set's recorder, isolating failures so a
// broken observer cannot change the outcome.
func (l *Limiter) record(ctx context.Context, set *RuleSet, rc RequestContext, res Result) {
	if set.Recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.ErrorContext(ctx, "metrics recorder panicked",
				slog.String("rule_set_id", set.ID),
				slog.Any("panic", r))
		}
	}()
	set.Recorder.Record(ctx, rc, res)
}

// buckets maps a rule's bands to store buckets under the resolved key.
func buckets(setID string, r *rule.Rule, key string) []bucketstore.Bucket {
	out := make([]bucketstore.Bucket, len(r.Bands))
	for i, b := range r.Bands {
		out[i] = bucketstore.Bucket{
			Key: bucketstore.Key(setID, r.ID, key, b.KeyLabel()),
			Config: bucketstore.Config{
				Capacity:       b.Capacity,
				RefillTokens:   b.Capacity,
				RefillInterval: b.Window,
				TTL:            bucketstore.TTLFor(b.Window),
			},
		}
	}
	return out
}
