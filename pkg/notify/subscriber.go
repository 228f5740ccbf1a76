package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
)

// DedupWindow is how long an identical back-to-back message is considered a
// duplicate and dropped. Admin surfaces often publish once per replica; the
// window collapses those bursts into one reload.
const DedupWindow = 100 * time.Millisecond

// subscribeClient is the subset of redis.UniversalClient the subscriber uses.
type subscribeClient interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Handler receives decoded rule-change messages.
type Handler func(ctx context.Context, m Message)

// Subscriber maintains a durable subscription to the rule-change channel.
// When the connection drops it reconnects with capped exponential backoff;
// malformed payloads are logged and skipped.
type Subscriber struct {
	client  subscribeClient
	channel string
	backoff backoff
	log     *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}

	mu       sync.Mutex
	lastBody string
	lastAt   time.Time
	now      func() time.Time
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithSubscriberChannel overrides the pub/sub channel.
func WithSubscriberChannel(channel string) SubscriberOption {
	return func(s *Subscriber) {
		if channel != "" {
			s.channel = channel
		}
	}
}

// WithSubscriberLogger sets the subscriber's logger.
func WithSubscriberLogger(log *slog.Logger) SubscriberOption {
	return func(s *Subscriber) {
		if log != nil {
			s.log = log
		}
	}
}

// WithReconnectBackoff tunes the reconnect delays.
func WithReconnectBackoff(initial, max time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		if initial > 0 {
			s.backoff.initial = initial
		}
		if max > 0 {
			s.backoff.max = max
		}
	}
}

// NewSubscriber builds a subscriber on an established Redis client.
func NewSubscriber(client subscribeClient, opts ...SubscriberOption) (*Subscriber, error) {
	if client == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "notify.NewSubscriber", ErrNilClient)
	}

	s := &Subscriber{
		client:  client,
		channel: DefaultChannel,
		backoff: defaultBackoff(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		closed:  make(chan struct{}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Subscribe blocks receiving messages and invoking handler for each until
// the context is cancelled or the subscriber is closed. It returns nil on
// orderly shutdown.
func (s *Subscriber) Subscribe(ctx context.Context, handler Handler) error {
	const op = "notify.Subscribe"

	if handler == nil {
		return fluxerr.New(fluxerr.KindInvalidArgument, op, ErrNilHandler)
	}
	select {
	case <-s.closed:
		return fluxerr.New(fluxerr.KindInvalidArgument, op, ErrClosed)
	default:
	}

	attempt := 0
	for {
		if err := s.receive(ctx, handler); err == nil {
			// Orderly shutdown.
			return nil
		}

		attempt++
		delay := s.backoff.next(attempt)
		s.log.WarnContext(ctx, "rule-change subscription dropped, reconnecting",
			slog.String("channel", s.channel),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		case <-s.closed:
			return nil
		}
	}
}

// receive runs one subscription until it breaks. A nil return means the
// subscriber is shutting down; any error means the connection should be
// re-established.
func (s *Subscriber) receive(ctx context.Context, handler Handler) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer func() { _ = pubsub.Close() }()

	// Confirm the subscription so a broken connection surfaces here rather
	// than as a silent, empty channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return ErrClosed // connection lost, reconnect
			}
			s.handle(ctx, handler, msg.Payload)
		case <-ctx.Done():
			return nil
		case <-s.closed:
			return nil
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, handler Handler, payload string) {
	if s.duplicate(payload) {
		s.log.DebugContext(ctx, "duplicate rule-change message dropped",
			slog.String("channel", s.channel))
		return
	}

	m, err := DecodeMessage([]byte(payload))
	if err != nil {
		s.log.WarnContext(ctx, "malformed rule-change message skipped",
			slog.String("channel", s.channel),
			slog.Any("error", err))
		return
	}
	handler(ctx, m)
}

// duplicate reports whether the payload repeats the previous one within the
// dedup window, updating the comparison state either way.
func (s *Subscriber) duplicate(payload string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dup := payload == s.lastBody && now.Sub(s.lastAt) <= DedupWindow
	s.lastBody = payload
	s.lastAt = now
	return dup
}

// Close terminates the subscription. Safe to call multiple times.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
