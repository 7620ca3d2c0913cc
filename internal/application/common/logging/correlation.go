package logging

import "context"

// contextKey prevents collisions with other packages' context values.
type contextKey string

// CorrelationIDKey is the context key carrying the correlation identifier.
const CorrelationIDKey contextKey = "correlation_id"

// WithCorrelationID returns a context carrying the given correlation id.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// CorrelationIDFromContext extracts the correlation id from a context. It
// also accepts the bare string key for callers outside this module.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	if id, ok := ctx.Value(CorrelationIDKey).(string); ok && id != "" {
		return id
	}
	if id, ok := ctx.Value("correlation_id").(string); ok && id != "" {
		return id
	}
	return ""
}
