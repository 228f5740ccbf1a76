package reload

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fluxgate/fluxgate/pkg/bucketstore"
	"github.com/fluxgate/fluxgate/pkg/fluxerr"
)

// Purger deletes bucket state by key prefix, satisfied by the bucket stores.
type Purger interface {
	PurgePrefix(ctx context.Context, prefix string) (int64, error)
}

// DefaultResetTimeout bounds one purge run so a slow store cannot stall the
// reload dispatch loop for long.
const DefaultResetTimeout = 30 * time.Second

// BucketResetHandler purges stored bucket state when rules change, so new
// limits apply immediately instead of after the old buckets drain. Resets
// are best-effort: failures are logged and never propagate into the reload
// path, because stale buckets are preferable to a broken reload.
type BucketResetHandler struct {
	store   Purger
	timeout time.Duration
	log     *slog.Logger
}

// ResetOption configures a BucketResetHandler.
type ResetOption func(*BucketResetHandler)

// WithResetTimeout bounds one purge run.
func WithResetTimeout(d time.Duration) ResetOption {
	return func(h *BucketResetHandler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithResetLogger sets the handler's logger.
func WithResetLogger(log *slog.Logger) ResetOption {
	return func(h *BucketResetHandler) {
		if log != nil {
			h.log = log
		}
	}
}

// NewBucketResetHandler builds a reset handler purging through store.
func NewBucketResetHandler(store Purger, opts ...ResetOption) (*BucketResetHandler, error) {
	if store == nil {
		return nil, fluxerr.New(fluxerr.KindInvalidArgument, "reload.NewBucketResetHandler", ErrNilStore)
	}

	h := &BucketResetHandler{
		store:   store,
		timeout: DefaultResetTimeout,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// OnReload purges the buckets the event invalidates. Always returns nil.
func (h *BucketResetHandler) OnReload(ctx context.Context, ev Event) error {
	if ev.Full() {
		h.ResetAllBuckets(ctx)
	} else {
		h.ResetBuckets(ctx, ev.RuleSetID)
	}
	return nil
}

// ResetBuckets purges every bucket of one rule set.
func (h *BucketResetHandler) ResetBuckets(ctx context.Context, ruleSetID string) {
	if ruleSetID == "" {
		return
	}
	h.purge(ctx, bucketstore.SetPrefix(ruleSetID))
}

// ResetAllBuckets purges every bucket in the namespace.
func (h *BucketResetHandler) ResetAllBuckets(ctx context.Context) {
	h.purge(ctx, bucketstore.AllPrefix())
}

func (h *BucketResetHandler) purge(ctx context.Context, prefix string) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	n, err := h.store.PurgePrefix(ctx, prefix)
	if err != nil {
		h.log.WarnContext(ctx, "bucket reset failed",
			slog.String("prefix", prefix),
			slog.Int64("purged", n),
			slog.Any("error", err))
		return
	}
	h.log.InfoContext(ctx, "buckets reset",
		slog.String("prefix", prefix),
		slog.Int64("purged", n))
}
