package reload

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/limiter"
	"github.com/fluxgate/fluxgate/pkg/rule"
)

// SetSource resolves a rule set id to its current content, bypassing any
// cache. The caching provider's Uncached view satisfies this.
type SetSource interface {
	FindByID(ctx context.Context, id string) (*limiter.RuleSet, error)
}

// CacheView exposes which rule sets are currently cached and therefore
// worth watching.
type CacheView interface {
	CachedIDs() []string
}

const (
	// DefaultPollInterval is how often the polling strategy re-checks
	// fingerprints.
	DefaultPollInterval = 30 * time.Second

	// DefaultInitialDelay is the quiet period before the first poll round.
	DefaultInitialDelay = 5 * time.Second
)

// Polling detects rule changes by fingerprinting the content behind every
// cached rule set at a fixed interval. The first sighting of a set records
// its baseline; later mismatches emit an event. A set that disappears from
// the repository emits an event too, so the cache drops it.
type Polling struct {
	*dispatcher

	source       SetSource
	cache        CacheView
	interval     time.Duration
	initialDelay time.Duration
	log          *slog.Logger

	mu           sync.Mutex
	fingerprints map[string]string
	cancel       context.CancelFunc
	done         chan struct{}
	running      atomic.Bool
}

// PollingOption configures a Polling strategy.
type PollingOption func(*Polling)

// WithPollInterval sets the time between poll rounds.
func WithPollInterval(d time.Duration) PollingOption {
	return func(p *Polling) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithInitialDelay sets the quiet period before the first round.
func WithInitialDelay(d time.Duration) PollingOption {
	return func(p *Polling) {
		if d >= 0 {
			p.initialDelay = d
		}
	}
}

// WithPollingLogger sets the strategy's logger.
func WithPollingLogger(log *slog.Logger) PollingOption {
	return func(p *Polling) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPolling builds a polling strategy watching the sets listed by cache
// and fetching their content from source.
func NewPolling(source SetSource, cache CacheView, opts ...PollingOption) (*Polling, error) {
	const op = "reload.NewPolling"

	if source == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrNilProvider)
	}
	if cache == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, op, ErrNilCacheView)
	}

	p := &Polling{
		source:       source,
		cache:        cache,
		interval:     DefaultPollInterval,
		initialDelay: DefaultInitialDelay,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		fingerprints: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.dispatcher = newDispatcher(p.log)
	return p, nil
}

// Start launches the poll loop.
func (p *Polling) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fluxerr.New(fluxerr.KindInvalidArgument, "reload.Polling.Start", ErrAlreadyRunning)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.loop(loopCtx, done)
	return nil
}

// Stop terminates the poll loop and waits for it to exit. Idempotent.
func (p *Polling) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	p.running.Store(false)
	return nil
}

// Running reports whether the poll loop is active.
func (p *Polling) Running() bool { return p.running.Load() }

// TriggerReload emits an event for one rule set and forgets its baseline.
func (p *Polling) TriggerReload(ctx context.Context, ruleSetID string, source Source) {
	p.forget(ruleSetID)
	p.dispatch(ctx, Event{RuleSetID: ruleSetID, Source: source, At: time.Now()})
}

// TriggerReloadAll emits a full-reload event and forgets all baselines.
func (p *Polling) TriggerReloadAll(ctx context.Context, source Source) {
	p.mu.Lock()
	p.fingerprints = make(map[string]string)
	p.mu.Unlock()
	p.dispatch(ctx, Event{Source: source, At: time.Now()})
}

// AddListener registers a listener.
func (p *Polling) AddListener(l Listener) { p.add(l) }

// RemoveListener drops a listener.
func (p *Polling) RemoveListener(l Listener) { p.remove(l) }

func (p *Polling) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if p.initialDelay > 0 {
		select {
		case <-time.After(p.initialDelay):
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// poll fingerprints every watched set and emits events for the changed ones.
func (p *Polling) poll(ctx context.Context) {
	for _, id := range p.cache.CachedIDs() {
		set, err := p.source.FindByID(ctx, id)
		if err != nil {
			p.log.WarnContext(ctx, "poll round failed for rule set",
				slog.String("rule_set_id", id),
				slog.Any("error", err))
			continue
		}

		if set == nil {
			// The set vanished from the repository. Emit so the cache
			// drops it, and forget the baseline.
			if p.forget(id) {
				p.dispatch(ctx, Event{RuleSetID: id, Source: SourcePolling, At: time.Now()})
			}
			continue
		}

		fp := rule.Fingerprint(set.Doc())
		p.mu.Lock()
		prev, seen := p.fingerprints[id]
		p.fingerprints[id] = fp
		p.mu.Unlock()

		if seen && prev != fp {
			p.dispatch(ctx, Event{RuleSetID: id, Source: SourcePolling, At: time.Now()})
		}
	}
}

// forget drops the baseline for one set, reporting whether one existed.
func (p *Polling) forget(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.fingerprints[id]
	delete(p.fingerprints, id)
	return ok
}
