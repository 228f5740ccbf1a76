package ruleset

import (
	"context"
	"io"
	"log/slog"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/limiter"
	"github.com/fluxgate/fluxgate/pkg/reload"
)

// CachingProvider decorates a Provider with the rule-set cache. Misses
// resolve through the backing provider and populate the cache; empty
// results are never cached, so a set created later is picked up on its
// first request.
//
// The decorator is also a reload listener: register it with a strategy and
// it drops the affected cache entries when rules change. The dependency is
// one-way, the strategy never knows the provider.
type CachingProvider struct {
	backing Provider
	cache   *Cache
	log     *slog.Logger
}

// NewCachingProvider wraps backing with cache.
func NewCachingProvider(backing Provider, cache *Cache, log *slog.Logger) (*CachingProvider, error) {
	const op = "ruleset.NewCachingProvider"

	if backing == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrNilProvider)
	}
	if cache == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrNilCache)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachingProvider{backing: backing, cache: cache, log: log}, nil
}

// FindByID returns the cached set, resolving and caching on a miss.
func (cp *CachingProvider) FindByID(ctx context.Context, id string) (*limiter.RuleSet, error) {
	if id == "" {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "ruleset.CachingProvider.FindByID", ErrEmptyID)
	}

	if set, ok := cp.cache.Get(id); ok {
		return set, nil
	}

	set, err := cp.backing.FindByID(ctx, id)
	if err != nil || set == nil {
		return set, err
	}

	cp.cache.Put(id, set)
	return set, nil
}

// Uncached returns the backing provider, which the polling strategy uses to
// fetch fresh content for fingerprinting.
func (cp *CachingProvider) Uncached() Provider { return cp.backing }

// CachedIDs returns a snapshot of the currently cached rule-set ids.
func (cp *CachingProvider) CachedIDs() []string { return cp.cache.IDs() }

// Stats returns the cache counters.
func (cp *CachingProvider) Stats() Stats { return cp.cache.Stats() }

// OnReload drops the cache entries the event invalidates, so the next
// request re-reads the repository.
func (cp *CachingProvider) OnReload(ctx context.Context, ev reload.Event) error {
	if ev.Full() {
		cp.cache.InvalidateAll()
		cp.log.InfoContext(ctx, "rule set cache cleared",
			slog.String("source", string(ev.Source)))
		return nil
	}

	if cp.cache.Invalidate(ev.RuleSetID) {
		cp.log.InfoContext(ctx, "rule set cache entry invalidated",
			slog.String("rule_set_id", ev.RuleSetID),
			slog.String("source", string(ev.Source)))
	}
	return nil
}
