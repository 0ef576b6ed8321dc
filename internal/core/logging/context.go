package logging

import "context"

type contextKey string

const (
	requestIDKey      contextKey = "request_id"
	notificationIDKey contextKey = "notification_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithNotificationID adds a notification ID to the context.
func WithNotificationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, notificationIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetNotificationID retrieves the notification ID from the context.
// Returns empty string if not present.
func GetNotificationID(ctx context.Context) string {
	if id, ok := ctx.Value(notificationIDKey).(string); ok {
		return id
	}
	return ""
}
