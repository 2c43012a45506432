package types

import "time"

// Notification is an in-app message addressed to one member.
// Broadcasts are stored as one row per member.
type Notification struct {
	ID        int        `json:"id" db:"id"`
	MemberID  int        `json:"member_id" db:"member_id"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
