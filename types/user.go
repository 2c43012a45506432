package types

import "time"

// Account represents a login identity in the system.
// Every account owns exactly one Profile with the same ID.
type Account struct {
	// ID is the unique identifier of the account.
	ID int `json:"id" db:"id"`

	// Mobile is the unique login identifier.
	Mobile string `json:"mobile" db:"mobile"`

	// Email is an optional contact address.
	Email string `json:"email,omitempty" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AuthSession records an issued access token so it can be revoked
// before it expires.
type AuthSession struct {
	// ID is the token identifier carried in the JWT "jti" claim.
	ID string `json:"id" db:"id"`

	// AccountID is the account the token was issued to.
	AccountID int `json:"account_id" db:"account_id"`

	// ExpiresAt mirrors the token expiry.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	// RevokedAt is set on logout or refresh.
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Active reports whether the session may still authenticate requests.
func (s AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
