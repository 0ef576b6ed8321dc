package inbox

import (
	"strconv"
	"time"

	"github.com/colonyops/inbox/internal/cache"
	"github.com/colonyops/inbox/internal/core/notification"
)

type sample struct {
	age   time.Duration
	draft notification.Draft
}

var samples = []sample{
	{
		age: 2 * time.Hour,
		draft: notification.Draft{
			Type:      "booking_confirmed",
			Title:     "Booking Confirmed",
			Message:   "Your appointment with {specialist} on {date} is confirmed.",
			ActionURL: "/bookings",
			Metadata: notification.Metadata{
				"specialist": notification.StringValue("Maria"),
				"date":       notification.StringValue("tomorrow"),
			},
		},
	},
	{
		age: 5 * time.Hour,
		draft: notification.Draft{
			Type:      "payment_received",
			Title:     "Payment Received",
			Message:   "We received your payment of {amount}.",
			ActionURL: "/payments",
			Metadata: notification.Metadata{
				"amount": notification.StringValue("$45.00"),
			},
		},
	},
	{
		age: 26 * time.Hour,
		draft: notification.Draft{
			Type:      "review_request",
			Title:     "How was your visit?",
			Message:   "Leave a review for {specialist}.",
			IsRead:    true,
			ActionURL: "/reviews",
			Metadata: notification.Metadata{
				"specialist": notification.StringValue("Maria"),
			},
		},
	},
	{
		age: 72 * time.Hour,
		draft: notification.Draft{
			Type:    notification.TypeSystem,
			Title:   "Welcome",
			Message: "Notifications will appear here.",
			IsRead:  true,
		},
	},
}

// SampleRecords returns the placeholder records seeded into an empty cache
// on the first fallback, newest first.
func SampleRecords(now time.Time) []notification.Record {
	out := make([]notification.Record, 0, len(samples))
	for i, s := range samples {
		ts := now.Add(-s.age)
		out = append(out, notification.Record{
			ID:        cache.LocalIDPrefix + "sample_" + strconv.Itoa(i+1),
			Type:      s.draft.Type,
			Title:     s.draft.Title,
			Message:   s.draft.Message,
			IsRead:    s.draft.IsRead,
			CreatedAt: ts,
			UpdatedAt: ts,
			ActionURL: s.draft.ActionURL,
			Metadata:  s.draft.Metadata.Clone(),
		})
	}
	return out
}
