package logger

import "context"

type contextKey struct{}

var requestIDKey = contextKey{}

// WithRequestID stores a request id on the context. The HTTP request-id
// middleware calls this so log lines for one request can be correlated.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored on the context, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
