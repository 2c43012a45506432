package types

import "time"

// Pandit is a priest listed in the community directory.
type Pandit struct {
	ID              int      `json:"id" db:"id"`
	Name            string   `json:"name" db:"name"`
	Specializations []string `json:"specializations" db:"specializations"`
	Location        string   `json:"location" db:"location"`
	Bio             string   `json:"bio,omitempty" db:"bio"`
	ExperienceYears int      `json:"experience_years" db:"experience_years"`

	// Phone and WhatsApp are contact details shown only to verified members.
	Phone    string `json:"phone,omitempty" db:"phone"`
	WhatsApp string `json:"whatsapp,omitempty" db:"whatsapp"`

	// AverageRating and ReviewCount are aggregated from reviews.
	AverageRating float64 `json:"average_rating" db:"average_rating"`
	ReviewCount   int     `json:"review_count" db:"review_count"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BookingStatus is the state of a pandit appointment.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	default:
		return false
	}
}

// Booking is an appointment request from a member to a pandit.
type Booking struct {
	ID          int           `json:"id" db:"id"`
	PanditID    int           `json:"pandit_id" db:"pandit_id"`
	MemberID    int           `json:"member_id" db:"member_id"`
	Ceremony    string        `json:"ceremony" db:"ceremony"`
	ScheduledAt time.Time     `json:"scheduled_at" db:"scheduled_at"`
	Notes       string        `json:"notes,omitempty" db:"notes"`
	Status      BookingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Review is a member's rating of a pandit. A member has at most one
// review per pandit.
type Review struct {
	ID         int       `json:"id" db:"id"`
	PanditID   int       `json:"pandit_id" db:"pandit_id"`
	MemberID   int       `json:"member_id" db:"member_id"`
	MemberName string    `json:"member_name,omitempty" db:"member_name"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    string    `json:"comment,omitempty" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
