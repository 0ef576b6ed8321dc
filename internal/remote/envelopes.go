package remote

import "github.com/colonyops/inbox/internal/core/notification"

// MessageEnvelope is the generic response wrapper. Error responses carry
// Error and optionally ErrorCode.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// Pagination describes the page returned by List.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResponse is the body of GET /notifications.
type ListResponse struct {
	Notifications []notification.Record `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
	Pagination    Pagination            `json:"pagination"`
}

// listEnvelope decodes ListResponse with the required keys as pointers so an
// absent key is told apart from an empty value.
type listEnvelope struct {
	Notifications *[]notification.Record `json:"notifications"`
	UnreadCount   *int                   `json:"unreadCount"`
	Pagination    Pagination             `json:"pagination"`
}

// statusEnvelope picks the failure markers out of any 2xx body.
type statusEnvelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// UnreadCountEnvelope is the body of GET /notifications/unread-count.
type UnreadCountEnvelope struct {
	UnreadCount *int `json:"unreadCount"`
}

// MarkAllReadEnvelope is the body of PUT /notifications/read-all.
type MarkAllReadEnvelope struct {
	Message     string `json:"message"`
	MarkedCount *int   `json:"markedCount"`
}

// DeleteAllEnvelope is the body of DELETE /notifications/all.
type DeleteAllEnvelope struct {
	Message      string `json:"message"`
	DeletedCount *int   `json:"deletedCount"`
}

// PreferencesEnvelope is the body of PUT /notifications/settings.
type PreferencesEnvelope struct {
	Message     string                    `json:"message"`
	Preferences *notification.Preferences `json:"preferences"`
}

// HealthEnvelope is the body of GET /health.
type HealthEnvelope struct {
	Status string `json:"status"`
	Time   string `json:"time,omitempty"`
}

// IntPtr is a helper for building count envelopes.
func IntPtr(n int) *int {
	return &n
}
