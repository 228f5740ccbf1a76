package reload

import (
	"strings"
	"time"

	"github.com/fluxgate/fluxgate/pkg/fluxerr"
	"github.com/fluxgate/fluxgate/pkg/notify"
)

// StrategyKind names the configured change-detection mechanism.
type StrategyKind string

const (
	// StrategyPolling re-fetches and fingerprints cached sets on a timer.
	StrategyPolling StrategyKind = "POLLING"
	// StrategyPubSub listens for published rule-change messages.
	StrategyPubSub StrategyKind = "PUBSUB"
	// StrategyNone disables automatic detection; only manual triggers fire.
	StrategyNone StrategyKind = "NONE"
)

// Config tunes change detection.
type Config struct {
	// Strategy selects POLLING, PUBSUB or NONE.
	Strategy StrategyKind `env:"FLUXGATE_RELOAD_STRATEGY" envDefault:"POLLING"`

	// PollInterval is the time between polling rounds.
	PollInterval time.Duration `env:"FLUXGATE_RELOAD_POLL_INTERVAL" envDefault:"30s"`

	// InitialDelay is the quiet period before the first polling round.
	InitialDelay time.Duration `env:"FLUXGATE_RELOAD_INITIAL_DELAY" envDefault:"5s"`

	// ResetBuckets controls whether a reload also purges the affected
	// bucket state.
	ResetBuckets bool `env:"FLUXGATE_RELOAD_RESET_BUCKETS" envDefault:"true"`

	// Channel is the pub/sub channel rule-change messages travel on.
	Channel string `env:"FLUXGATE_RELOAD_CHANNEL" envDefault:"fluxgate:rule-reload"`
}

// Kind folds case so "pubsub" works in env files.
func (c Config) Kind() StrategyKind {
	return StrategyKind(strings.ToUpper(string(c.Strategy)))
}

// SubscriberChannel returns the configured channel, or the notify default.
func (c Config) SubscriberChannel() string {
	if c.Channel == "" {
		return notify.DefaultChannel
	}
	return c.Channel
}

// NewStrategy builds the configured strategy. The polling dependencies are
// always required; messages is only consulted for PUBSUB (a notify.Subscriber
// built with cfg.SubscriberChannel()). NONE yields a polling strategy that is
// never started, so manual and API triggers still dispatch.
func NewStrategy(cfg Config, source SetSource, cache CacheView, messages MessageSource, opts ...PollingOption) (Strategy, error) {
	switch cfg.Kind() {
	case StrategyPubSub:
		if messages == nil {
			return nil, fluxerr.New(fluxerr.KindConfigMissing, "reload.NewStrategy", ErrNilSubscriber)
		}
		return NewPubSub(messages)
	case StrategyPolling, StrategyNone, "":
		all := append([]PollingOption{
			WithPollInterval(cfg.PollInterval),
			WithInitialDelay(cfg.InitialDelay),
		}, opts...)
		return NewPolling(source, cache, all...)
	}
	return nil, fluxerr.New(fluxerr.KindConfigInvalid, "reload.NewStrategy", ErrUnknownStrategy)
}
