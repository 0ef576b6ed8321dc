// Package notification defines the notification record, preference, and
// filter types shared by the local cache, the remote client, and the CLI.
package notification

import (
	"strings"
	"time"
)

// Type is the category of a notification. It is treated as an opaque string so
// server-defined subtypes such as "booking_confirmed" round-trip unchanged.
type Type string

// Known notification categories.
const (
	TypeBooking   Type = "booking"
	TypePayment   Type = "payment"
	TypeReview    Type = "review"
	TypeSystem    Type = "system"
	TypeMarketing Type = "marketing"
)

// KnownTypes returns the built-in categories in display order.
func KnownTypes() []Type {
	return []Type{TypeBooking, TypePayment, TypeReview, TypeSystem, TypeMarketing}
}

// Known reports whether t is one of the built-in categories.
func (t Type) Known() bool {
	switch t {
	case TypeBooking, TypePayment, TypeReview, TypeSystem, TypeMarketing:
		return true
	default:
		return false
	}
}

// Category returns the built-in category a subtype belongs to, e.g.
// "booking_confirmed" -> "booking". Unknown types are returned unchanged.
func (t Type) Category() Type {
	if t.Known() {
		return t
	}
	head, _, _ := strings.Cut(string(t), "_")
	if Type(head).Known() {
		return Type(head)
	}
	return t
}

// Record is a single notification as stored locally or returned by the API.
type Record struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ActionURL string    `json:"actionUrl,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`

	// Synced is false for locally-originated records until they have been
	// pushed to the remote service. Remote records are always synced.
	Synced bool `json:"synced"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Metadata = r.Metadata.Clone()
	return r
}

// Draft is the caller-supplied part of a new record. The id, timestamps and
// sync flag are assigned by the store that accepts it.
type Draft struct {
	Type      Type     `json:"type" validate:"required"`
	Title     string   `json:"title" validate:"required,max=200"`
	Message   string   `json:"message"`
	IsRead    bool     `json:"isRead"`
	ActionURL string   `json:"actionUrl,omitempty" validate:"omitempty,uri"`
	Metadata  Metadata `json:"metadata,omitempty"`
}

// Validate checks the draft's struct tags.
func (d Draft) Validate() error {
	return validateStruct(d)
}

// Filter narrows a listing. Zero values mean "no constraint".
type Filter struct {
	Type   Type
	IsRead *bool
	Limit  int
}

// Match reports whether r satisfies the type and read-state constraints.
// Limit is applied by the caller after sorting.
func (f Filter) Match(r Record) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.IsRead != nil && r.IsRead != *f.IsRead {
		return false
	}
	return true
}

// Bool returns a pointer to b, for building filters and patches.
func Bool(b bool) *bool {
	return &b
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
