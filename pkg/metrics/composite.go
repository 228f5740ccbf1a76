package metrics

import (
	"context"
	"io"
	"log/slog"

	"github.com/fluxgate/fluxgate/pkg/limiter"
)

// Composite fans one decision out to several recorders, isolating each so a
// broken one cannot silence the rest.
type Composite struct {
	recorders []limiter.Recorder
	log       *slog.Logger
}

// NewComposite builds a composite over the given recorders. Nil recorders
// are skipped; a nil logger drops the failure reports.
func NewComposite(log *slog.Logger, recorders ...limiter.Recorder) *Composite {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	clean := make([]limiter.Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			clean = append(clean, r)
		}
	}
	return &Composite{recorders: clean, log: log}
}

// Record invokes every recorder in order.
func (c *Composite) Record(ctx context.Context, rc limiter.RequestContext, res limiter.Result) {
	for _, r := range c.recorders {
		c.invoke(ctx, r, rc, res)
	}
}

func (c *Composite) invoke(ctx context.Context, r limiter.Recorder, rc limiter.RequestContext, res limiter.Result) {
	defer func() {
		if p := recover(); p != nil {
			c.log.ErrorContext(ctx, "metrics recorder panicked", slog.Any("panic", p))
		}
	}()
	r.Record(ctx, rc, res)
}
