package logging

import (
	"context"
	"testing"
)

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "req-123"

	ctx = WithRequestID(ctx, requestID)
	got := GetRequestID(ctx)

	if got != requestID {
		t.Errorf("GetRequestID() = %q, want %q", got, requestID)
	}
}

func TestWithNotificationID(t *testing.T) {
	ctx := context.Background()
	id := "local_01J"

	ctx = WithNotificationID(ctx, id)
	got := GetNotificationID(ctx)

	if got != id {
		t.Errorf("GetNotificationID() = %q, want %q", got, id)
	}
}

func TestGetRequestID_NotPresent(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty string", got)
	}
}

func TestGetNotificationID_NotPresent(t *testing.T) {
	if got := GetNotificationID(context.Background()); got != "" {
		t.Errorf("GetNotificationID() = %q, want empty string", got)
	}
}
