package traceid

import (
	"context"
	"log/slog"
)

// LoggerExtractor returns a context extractor for the logging package that
// stamps the trace id onto every record.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if traceID := FromContext(ctx); traceID != "" {
			return slog.String("trace_id", traceID), true
		}
		return slog.Attr{}, false
	}
}
