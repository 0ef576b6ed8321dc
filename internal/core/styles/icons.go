package styles

import "github.com/colonyops/inbox/internal/core/notification"

var (
	IconUnread   = "●"
	IconRead     = "○"
	IconUnsynced = "↑"
	IconRemote   = "☁"
	IconLocal    = "⌂"
)

var typeIcons = map[notification.Type]string{
	notification.TypeBooking:   "📅",
	notification.TypePayment:   "💳",
	notification.TypeReview:    "★",
	notification.TypeSystem:    "⚙",
	notification.TypeMarketing: "✉",
}

// IconForType returns the glyph for t's category, or a bullet for unknown
// types.
func IconForType(t notification.Type) string {
	if icon, ok := typeIcons[t.Category()]; ok {
		return icon
	}
	return "•"
}
