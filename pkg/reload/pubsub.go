package reload

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/notify"
)

// MessageSource is the subscription the pubsub strategy consumes,
// satisfied by notify.Subscriber.
type MessageSource interface {
	Subscribe(ctx context.Context, handler notify.Handler) error
	Close() error
}

// PubSub turns published rule-change messages into reload events. Change
// detection latency is one broker round-trip; the underlying subscriber
// reconnects on its own when the broker connection drops.
type PubSub struct {
	*dispatcher

	source MessageSource
	log    *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
}

// PubSubOption configures a PubSub strategy.
type PubSubOption func(*PubSub)

// WithPubSubLogger sets the strategy's logger.
func WithPubSubLogger(log *slog.Logger) PubSubOption {
	return func(p *PubSub) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPubSub builds a pubsub strategy draining events from source.
func NewPubSub(source MessageSource, opts ...PubSubOption) (*PubSub, error) {
	if source == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "reload.NewPubSub", ErrNilSubscriber)
	}

	p := &PubSub{
		source: source,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.dispatcher = newDispatcher(p.log)
	return p, nil
}

// Start launches the receive loop.
func (p *PubSub) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fluxerr.New(fluxerr.KindInvalidArgument, "reload.PubSub.Start", ErrAlreadyRunning)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		if err := p.source.Subscribe(loopCtx, p.onMessage); err != nil {
			p.log.ErrorContext(loopCtx, "rule-change subscription ended",
				slog.Any("error", err))
		}
	}()
	return nil
}

// Stop terminates the receive loop and waits for it to exit. Idempotent.
func (p *PubSub) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	err := p.source.Close()
	<-done
	p.running.Store(false)
	return err
}

// Running reports whether the receive loop is active.
func (p *PubSub) Running() bool { return p.running.Load() }

// TriggerReload emits a manual event for one rule set.
func (p *PubSub) TriggerReload(ctx context.Context, ruleSetID string, source Source) {
	p.dispatch(ctx, Event{RuleSetID: ruleSetID, Source: source, At: time.Now()})
}

// TriggerReloadAll emits a manual full-reload event.
func (p *PubSub) TriggerReloadAll(ctx context.Context, source Source) {
	p.dispatch(ctx, Event{Source: source, At: time.Now()})
}

// AddListener registers a listener.
func (p *PubSub) AddListener(l Listener) { p.add(l) }

// RemoveListener drops a listener.
func (p *PubSub) RemoveListener(l Listener) { p.remove(l) }

// onMessage translates one wire message into a reload event.
func (p *PubSub) onMessage(ctx context.Context, m notify.Message) {
	ev := Event{
		Source: SourcePubSub,
		At:     time.UnixMilli(m.Timestamp),
		Metadata: map[string]string{
			"origin": m.Source,
		},
	}
	if !m.Full() {
		ev.RuleSetID = m.SetID()
	}
	if ev.At.IsZero() || m.Timestamp == 0 {
		ev.At = time.Now()
	}
	p.dispatch(ctx, ev)
}
