// Package access decides what a member may see or do on each feature
// surface of the portal.
//
// Every surface asks Evaluate with its Feature and the caller's Subject and
// renders the returned Decision. Denial is a normal Decision value; only an
// unknown feature is reported as an error.
package access

import (
	"errors"
	"fmt"

	"github.com/samajportal/apiserver/types"
)

// Feature names a gated surface.
type Feature string

const (
	PanditDirectory   Feature = "pandit_directory"
	PanditContact     Feature = "pandit_contact"
	PanditBooking     Feature = "pandit_booking"
	PanditReview      Feature = "pandit_review"
	EventListing      Feature = "event_listing"
	EventRegistration Feature = "event_registration"
	Donations         Feature = "donations"
	GalleryThumbnails Feature = "gallery_thumbnails"
	GalleryDownload   Feature = "gallery_download"
	LiveStream        Feature = "live_stream"
	AdminDashboard    Feature = "admin_dashboard"
)

// ErrUnknownFeature is returned for a feature that has no rule.
var ErrUnknownFeature = errors.New("unknown feature")

// Kind is the variant of a Decision.
type Kind string

const (
	Allow          Kind = "allow"
	BlurWithUpsell Kind = "blur_with_upsell"
	HideOrRedirect Kind = "hide_or_redirect"
)

// Target is where a denied member is sent next.
type Target string

const (
	TargetNone     Target = ""
	TargetLogin    Target = "login"
	TargetRegister Target = "register"
	TargetHome     Target = "home"
)

// Presentation tells the client how a denial is rendered.
type Presentation string

const (
	PresentNone          Presentation = ""
	PresentBlur          Presentation = "blur"
	PresentLockPanel     Presentation = "lock_panel"
	PresentFullPageBlock Presentation = "full_page_block"
	PresentBanner        Presentation = "banner"
	PresentRedirect      Presentation = "redirect"
)

// Decision is the outcome of evaluating a feature for a subject.
type Decision struct {
	Kind         Kind         `json:"kind"`
	Target       Target       `json:"target,omitempty"`
	Message      string       `json:"message,omitempty"`
	Presentation Presentation `json:"presentation,omitempty"`
}

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

// Subject is the part of a session the gate looks at.
type Subject struct {
	Authenticated bool
	Status        types.VerificationStatus
	IsAdmin       bool
}

// Verified reports whether the subject is an authenticated verified member.
func (s Subject) Verified() bool {
	return s.Authenticated && s.Status == types.VerificationVerified
}

type requirement int

const (
	requireNothing requirement = iota
	requireSignIn
	requireVerified
	requireAdmin
)

type rule struct {
	requires     requirement
	denied       Kind
	target       Target
	presentation Presentation
	message      string
}

const (
	msgSignIn   = "Please sign in to continue."
	msgVerify   = "Complete lineage verification to unlock this feature."
	msgAdmin    = "This area is restricted to administrators."
	msgDonation = "Donations are open to verified members. Complete verification to contribute."
	msgDownload = "Full-resolution downloads are available to verified members."
	msgLive     = "The live stream is available to verified members."
	msgContact  = "Contact details are visible to verified members."
)

var rules = map[Feature]rule{
	PanditDirectory:   {requires: requireNothing},
	PanditContact:     {requires: requireVerified, denied: BlurWithUpsell, target: TargetRegister, presentation: PresentBlur, message: msgContact},
	PanditBooking:     {requires: requireVerified, denied: BlurWithUpsell, target: TargetRegister, presentation: PresentBlur, message: msgVerify},
	PanditReview:      {requires: requireSignIn, denied: HideOrRedirect, target: TargetLogin, presentation: PresentRedirect, message: msgSignIn},
	EventListing:      {requires: requireNothing},
	EventRegistration: {requires: requireVerified, denied: BlurWithUpsell, target: TargetRegister, presentation: PresentBlur, message: msgVerify},
	Donations:         {requires: requireVerified, denied: HideOrRedirect, target: TargetRegister, presentation: PresentFullPageBlock, message: msgDonation},
	GalleryThumbnails: {requires: requireNothing},
	GalleryDownload:   {requires: requireVerified, denied: BlurWithUpsell, target: TargetRegister, presentation: PresentBanner, message: msgDownload},
	LiveStream:        {requires: requireVerified, denied: BlurWithUpsell, target: TargetRegister, presentation: PresentLockPanel, message: msgLive},
	AdminDashboard:    {requires: requireAdmin, denied: HideOrRedirect, target: TargetHome, presentation: PresentRedirect, message: msgAdmin},
}

var loginDecision = Decision{
	Kind:         HideOrRedirect,
	Target:       TargetLogin,
	Message:      msgSignIn,
	Presentation: PresentRedirect,
}

// Evaluate returns the decision for feature f and subject s.
// Authentication is checked before verification or role: an anonymous
// subject always gets the login redirect on a non-public feature.
func Evaluate(f Feature, s Subject) (Decision, error) {
	r, ok := rules[f]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownFeature, f)
	}

	if r.requires == requireNothing {
		return Decision{Kind: Allow}, nil
	}
	if !s.Authenticated {
		return loginDecision, nil
	}

	var granted bool
	switch r.requires {
	case requireSignIn:
		granted = true
	case requireVerified:
		granted = s.Status == types.VerificationVerified
	case requireAdmin:
		granted = s.IsAdmin
	}
	if granted {
		return Decision{Kind: Allow}, nil
	}
	return Decision{
		Kind:         r.denied,
		Target:       r.target,
		Message:      r.message,
		Presentation: r.presentation,
	}, nil
}

// EvaluateAll returns the decision for every known feature.
func EvaluateAll(s Subject) map[Feature]Decision {
	out := make(map[Feature]Decision, len(rules))
	for _, f := range Features() {
		d, _ := Evaluate(f, s)
		out[f] = d
	}
	return out
}

// Features lists every known feature.
func Features() []Feature {
	return []Feature{
		PanditDirectory, PanditContact, PanditBooking, PanditReview,
		EventListing, EventRegistration, Donations,
		GalleryThumbnails, GalleryDownload, LiveStream, AdminDashboard,
	}
}

// MustFeature converts a name to a Feature, panicking when it has no rule.
// It is meant for route wiring at start-up.
func MustFeature(name string) Feature {
	f := Feature(name)
	if _, ok := rules[f]; !ok {
		panic(fmt.Sprintf("access: unknown feature %q", name))
	}
	return f
}
