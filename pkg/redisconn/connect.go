package redisconn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect establishes the shared store connection per the configured mode,
// retrying pings until the store answers or the retry budget runs out.
func Connect(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	open, err := opener(cfg)
	if err != nil {
		return nil, err
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		client := open()
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrNotReady
}

// opener validates the configuration up front and returns a factory for
// the retry loop, so URL and mode errors surface before the first attempt.
func opener(cfg Config) (func() redis.UniversalClient, error) {
	switch cfg.normalizedMode() {
	case ModeStandalone:
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, errors.Join(ErrInvalidURL, err)
		}
		applyTimeouts(&opt.DialTimeout, &opt.ReadTimeout, &opt.WriteTimeout, cfg.Timeout)
		return func() redis.UniversalClient { return redis.NewClient(opt) }, nil

	case ModeCluster:
		opt, err := redis.ParseClusterURL(clusterURL(cfg.URL))
		if err != nil {
			return nil, errors.Join(ErrInvalidURL, err)
		}
		applyTimeouts(&opt.DialTimeout, &opt.ReadTimeout, &opt.WriteTimeout, cfg.Timeout)
		return func() redis.UniversalClient { return redis.NewClusterClient(opt) }, nil
	}

	return nil, ErrInvalidMode
}

// clusterURL folds "redis://a:1,b:2" into the addr-list form
// ParseClusterURL expects.
func clusterURL(raw string) string {
	head, rest, ok := strings.Cut(raw, ",")
	if !ok {
		return raw
	}
	return head + "?addr=" + strings.ReplaceAll(rest, ",", "&addr=")
}

func applyTimeouts(dial, read, write *time.Duration, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	*dial = timeout
	*read = timeout
	*write = timeout
}
