package metrics

import (
	"context"
	"io"
	"log/slog"

	"github.com/fluxgate/fluxgate/pkg/limiter"
)

// SlogRecorder writes one structured log line per decision: allows at
// debug, rejections at info.
type SlogRecorder struct {
	log *slog.Logger
}

// NewSlogRecorder builds a recorder writing to log.
func NewSlogRecorder(log *slog.Logger) *SlogRecorder {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SlogRecorder{log: log}
}

// Record logs the decision.
func (sr *SlogRecorder) Record(ctx context.Context, rc limiter.RequestContext, res limiter.Result) {
	attrs := []any{
		slog.Bool("allowed", res.Allowed),
		slog.String("endpoint", rc.Endpoint()),
		slog.String("method", rc.Method()),
		slog.Int64("remaining", res.Remaining),
	}
	if res.MatchedRule != nil {
		attrs = append(attrs,
			slog.String("rule_id", res.MatchedRule.ID),
			slog.String("bucket_key", res.MatchedKey),
		)
	}

	if res.Allowed {
		sr.log.DebugContext(ctx, "request admitted", attrs...)
		return
	}
	attrs = append(attrs, slog.Duration("wait_for", res.WaitFor))
	sr.log.InfoContext(ctx, "request rate limited", attrs...)
}
