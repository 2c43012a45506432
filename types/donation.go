package types

import "time"

// DonationKind distinguishes money from goods.
type DonationKind string

const (
	DonationMonetary DonationKind = "monetary"
	DonationInKind   DonationKind = "in_kind"
)

// Donation is a contribution recorded by a verified member.
//
// Monetary donations carry AmountMinor (paise for INR) and Currency.
// In-kind donations carry ItemDescription and Quantity instead.
type Donation struct {
	ID              int          `json:"id" db:"id"`
	MemberID        int          `json:"member_id" db:"member_id"`
	Kind            DonationKind `json:"kind" db:"kind"`
	AmountMinor     int64        `json:"amount_minor,omitempty" db:"amount_minor"`
	Currency        string       `json:"currency,omitempty" db:"currency"`
	ItemDescription string       `json:"item_description,omitempty" db:"item_description"`
	Quantity        int          `json:"quantity,omitempty" db:"quantity"`
	Purpose         string       `json:"purpose,omitempty" db:"purpose"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
}

// DonationTotals summarises recorded donations.
type DonationTotals struct {
	Count         int   `json:"count"`
	MonetaryMinor int64 `json:"monetary_minor"`
	InKindCount   int   `json:"in_kind_count"`
}
