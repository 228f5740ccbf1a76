package traceid

import "context"

type contextKey struct{}

// WithContext stores a trace id in the context.
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey{}, traceID)
}

// FromContext returns the trace id, or empty when none is set.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, ok := ctx.Value(contextKey{}).(string)
	if !ok {
		return ""
	}
	return traceID
}
