package types

import "time"

// VerificationStatus is the lineage-verification lifecycle state of a member.
type VerificationStatus string

// Supported verification states.
const (
	// VerificationNone is the state of a freshly created profile.
	VerificationNone VerificationStatus = "none"

	// VerificationPending indicates the member submitted lineage details
	// and is waiting for an administrator.
	VerificationPending VerificationStatus = "pending"

	// VerificationVerified indicates an administrator approved the member.
	VerificationVerified VerificationStatus = "verified"

	// VerificationRejected indicates an administrator rejected the submission.
	// The profile carries a rejection reason in this state only.
	VerificationRejected VerificationStatus = "rejected"
)

// Valid reports whether s is one of the known states.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationNone, VerificationPending, VerificationVerified, VerificationRejected:
		return true
	default:
		return false
	}
}

// Role is an authorization role held by a member. A member may hold
// several roles; each is stored as its own row.
type Role string

// Supported roles.
const (
	RoleAdmin Role = "admin"
	// RoleModerator is storable but no access rule consults it.
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	default:
		return false
	}
}

// Profile represents a community member.
// It is created together with the member's account and shares its ID.
type Profile struct {
	// ID is the member identifier, equal to the owning account ID.
	ID int `json:"id" db:"id"`

	// FullName is the member's display name.
	FullName string `json:"full_name" db:"full_name"`

	// Mobile is the member's mobile number. Always present.
	Mobile string `json:"mobile" db:"mobile"`

	// Email is the member's optional email address.
	Email string `json:"email,omitempty" db:"email"`

	// Gotra is the patrilineal clan name collected for verification.
	Gotra string `json:"gotra,omitempty" db:"gotra"`

	// FatherName is the name of the member's father.
	FatherName string `json:"father_name,omitempty" db:"father_name"`

	// NativeVillage is the member's ancestral village.
	NativeVillage string `json:"native_village,omitempty" db:"native_village"`

	// ReferenceName is an existing member who can vouch for this member.
	ReferenceName string `json:"reference_name,omitempty" db:"reference_name"`

	// ReferenceMobile is the mobile number of the reference person.
	ReferenceMobile string `json:"reference_mobile,omitempty" db:"reference_mobile"`

	// VerificationStatus is the member's current lifecycle state.
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`

	// RejectionReason explains a rejection. It is nil unless
	// VerificationStatus is VerificationRejected.
	RejectionReason *string `json:"rejection_reason" db:"rejection_reason"`

	// CreatedAt is the timestamp when the profile was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the profile.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsVerified reports whether the member has been approved.
func (p Profile) IsVerified() bool {
	return p.VerificationStatus == VerificationVerified
}

// LineageSubmission is the payload a member sends to request verification.
type LineageSubmission struct {
	FullName        string `json:"full_name"`
	Mobile          string `json:"mobile"`
	Email           string `json:"email"`
	Gotra           string `json:"gotra"`
	FatherName      string `json:"father_name"`
	NativeVillage   string `json:"native_village"`
	ReferenceName   string `json:"reference_name"`
	ReferenceMobile string `json:"reference_mobile"`
}

// RoleAssignment is a single (member, role) grant.
type RoleAssignment struct {
	MemberID  int       `json:"member_id" db:"member_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
