// Package verification implements the member lineage-verification lifecycle.
//
// A profile starts in "none". A member submission moves it to "pending";
// an administrator then approves ("verified") or rejects ("rejected", with
// a reason). Verified and rejected profiles accept a new submission, which
// returns them to "pending". Approve and Reject outside "pending" leave the
// profile untouched and report Changed=false.
//
// The functions here perform no I/O; callers persist the returned profile
// and trigger notifications when the outcome changed state.
package verification

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samajportal/apiserver/types"
)

// Outcome describes the result of applying an event to a profile.
type Outcome struct {
	Profile types.Profile
	From    types.VerificationStatus
	To      types.VerificationStatus
	Changed bool
}

// ValidationError lists the fields that made a request unacceptable.
// The profile state is never modified when it is returned.
type ValidationError struct {
	Fields []string
}

// Error lists the missing fields.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// ErrInvariant is returned by CheckInvariant.
var ErrInvariant = errors.New("rejection reason set outside rejected state")

// Submit applies a member's lineage submission.
func Submit(p types.Profile, sub types.LineageSubmission) (Outcome, error) {
	sub = trimSubmission(sub)

	var missing []string
	if sub.FullName == "" {
		missing = append(missing, "full_name")
	}
	if sub.Mobile == "" {
		missing = append(missing, "mobile")
	}
	if sub.Gotra == "" {
		missing = append(missing, "gotra")
	}
	if len(missing) > 0 {
		return unchanged(p), &ValidationError{Fields: missing}
	}

	from := currentStatus(p)
	next := p
	next.FullName = sub.FullName
	next.Mobile = sub.Mobile
	next.Email = sub.Email
	next.Gotra = sub.Gotra
	next.FatherName = sub.FatherName
	next.NativeVillage = sub.NativeVillage
	next.ReferenceName = sub.ReferenceName
	next.ReferenceMobile = sub.ReferenceMobile
	next.VerificationStatus = types.VerificationPending
	next.RejectionReason = nil

	return Outcome{
		Profile: next,
		From:    from,
		To:      types.VerificationPending,
		Changed: from != types.VerificationPending,
	}, nil
}

// Approve moves a pending profile to verified.
func Approve(p types.Profile) Outcome {
	from := currentStatus(p)
	if from != types.VerificationPending {
		return unchanged(p)
	}
	next := p
	next.VerificationStatus = types.VerificationVerified
	next.RejectionReason = nil
	return Outcome{Profile: next, From: from, To: types.VerificationVerified, Changed: true}
}

// Reject moves a pending profile to rejected with the given reason.
// An empty reason is a validation error regardless of the profile state.
func Reject(p types.Profile, reason string) (Outcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return unchanged(p), &ValidationError{Fields: []string{"reason"}}
	}
	from := currentStatus(p)
	if from != types.VerificationPending {
		return unchanged(p), nil
	}
	next := p
	next.VerificationStatus = types.VerificationRejected
	next.RejectionReason = &reason
	return Outcome{Profile: next, From: from, To: types.VerificationRejected, Changed: true}, nil
}

// CheckInvariant verifies that a rejection reason only accompanies
// the rejected state.
func CheckInvariant(p types.Profile) error {
	if p.RejectionReason != nil && p.VerificationStatus != types.VerificationRejected {
		return ErrInvariant
	}
	return nil
}

func unchanged(p types.Profile) Outcome {
	s := currentStatus(p)
	return Outcome{Profile: p, From: s, To: s}
}

// currentStatus treats an unset status as "none", the creation default.
func currentStatus(p types.Profile) types.VerificationStatus {
	if p.VerificationStatus == "" {
		return types.VerificationNone
	}
	return p.VerificationStatus
}

func trimSubmission(s types.LineageSubmission) types.LineageSubmission {
	return types.LineageSubmission{
		FullName:        strings.TrimSpace(s.FullName),
		Mobile:          strings.TrimSpace(s.Mobile),
		Email:           strings.TrimSpace(s.Email),
		Gotra:           strings.TrimSpace(s.Gotra),
		FatherName:      strings.TrimSpace(s.FatherName),
		NativeVillage:   strings.TrimSpace(s.NativeVillage),
		ReferenceName:   strings.TrimSpace(s.ReferenceName),
		ReferenceMobile: strings.TrimSpace(s.ReferenceMobile),
	}
}
