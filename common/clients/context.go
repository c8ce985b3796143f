package clients

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// RequestIDKey is the context key for the request id (X-Request-ID header)
const RequestIDKey contextKey = "request-id"

// WithRequestID adds a request id to the context. It is sent as
// X-Request-ID so the servers log the same id as the caller.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request id from context
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDKey).(string)
	return id, ok && id != ""
}
