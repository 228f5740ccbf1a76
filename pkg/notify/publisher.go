package notify

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
)

// publishClient is the subset of redis.UniversalClient the publisher uses.
type publishClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher sends rule-change notifications. Failures are reported as
// non-retryable notification errors; callers on the admin path log them and
// carry on, since the write that triggered the notification has already
// succeeded.
type Publisher struct {
	client  publishClient
	channel string
	breaker *breaker
	log     *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithChannel overrides the pub/sub channel.
func WithChannel(channel string) PublisherOption {
	return func(p *Publisher) {
		if channel != "" {
			p.channel = channel
		}
	}
}

// WithBreaker tunes the publish circuit breaker.
func WithBreaker(failureThreshold int, recoveryWindow time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.breaker = newBreaker(failureThreshold, recoveryWindow)
	}
}

// WithPublisherLogger sets the publisher's logger.
func WithPublisherLogger(log *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPublisher builds a publisher on an established Redis client.
func NewPublisher(client publishClient, opts ...PublisherOption) (*Publisher, error) {
	if client == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "notify.NewPublisher", ErrNilClient)
	}

	p := &Publisher{
		client:  client,
		channel: DefaultChannel,
		breaker: newBreaker(0, 0),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PublishRuleChange announces that the rules of one set changed.
func (p *Publisher) PublishRuleChange(ctx context.Context, ruleSetID, source string) error {
	return p.publish(ctx, NewRuleChange(ruleSetID, source))
}

// PublishFullReload announces that every rule set must be reloaded.
func (p *Publisher) PublishFullReload(ctx context.Context, source string) error {
	return p.publish(ctx, NewFullReload(source))
}

func (p *Publisher) publish(ctx context.Context, m Message) error {
	const op = "notify.publish"

	if !p.breaker.allow() {
		p.log.WarnContext(ctx, "rule-change publish suppressed, circuit open",
			slog.String("rule_set_id", m.SetID()))
		return fluxerr.New(fluxerr.KindCircuitOpen, op, ErrPublishSuppressed)
	}

	payload, err := m.Encode()
	if err != nil {
		return fluxerr.New(fluxerr.KindSerialization, op, err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.breaker.failure()
		p.log.ErrorContext(ctx, "rule-change publish failed",
			slog.String("channel", p.channel),
			slog.String("rule_set_id", m.SetID()),
			slog.Any("error", err))
		return fluxerr.New(fluxerr.KindNotification, op, err)
	}

	p.breaker.success()
	return nil
}
