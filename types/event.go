package types

import "time"

// Event is a community gathering members can register for.
type Event struct {
	ID          int        `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Location    string     `json:"location" db:"location"`
	StartsAt    time.Time  `json:"starts_at" db:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty" db:"ends_at"`

	// Capacity caps the number of attendees. Zero means unlimited.
	Capacity int `json:"capacity" db:"capacity"`

	// Registered is the sum of attendee counts over all registrations.
	Registered int `json:"registered" db:"registered"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasRoomFor reports whether the event can take n more attendees.
func (e Event) HasRoomFor(n int) bool {
	if e.Capacity <= 0 {
		return true
	}
	return e.Registered+n <= e.Capacity
}

// EventRegistration records a member's registration for an event.
type EventRegistration struct {
	EventID    int       `json:"event_id" db:"event_id"`
	MemberID   int       `json:"member_id" db:"member_id"`
	MemberName string    `json:"member_name,omitempty" db:"member_name"`
	Attendees  int       `json:"attendees" db:"attendees"`
	Attended   bool      `json:"attended" db:"attended"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
