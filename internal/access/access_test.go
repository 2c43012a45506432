package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samajportal/apiserver/types"
)

var (
	anonymous  = Subject{}
	unverified = Subject{Authenticated: true, Status: types.VerificationNone}
	pending    = Subject{Authenticated: true, Status: types.VerificationPending}
	rejected   = Subject{Authenticated: true, Status: types.VerificationRejected}
	verified   = Subject{Authenticated: true, Status: types.VerificationVerified}
	adminOnly  = Subject{Authenticated: true, Status: types.VerificationNone, IsAdmin: true}
)

func mustEval(t *testing.T, f Feature, s Subject) Decision {
	t.Helper()
	d, err := Evaluate(f, s)
	require.NoError(t, err)
	return d
}

func TestPublicFeaturesAlwaysAllow(t *testing.T) {
	for _, f := range []Feature{PanditDirectory, EventListing, GalleryThumbnails} {
		for _, s := range []Subject{anonymous, unverified, verified} {
			assert.True(t, mustEval(t, f, s).Allowed(), "%s %+v", f, s)
		}
	}
}

func TestPanditContact(t *testing.T) {
	d := mustEval(t, PanditContact, anonymous)
	assert.Equal(t, HideOrRedirect, d.Kind)
	assert.Equal(t, TargetLogin, d.Target)

	d = mustEval(t, PanditContact, unverified)
	assert.Equal(t, BlurWithUpsell, d.Kind)
	assert.Equal(t, TargetRegister, d.Target)
	assert.Equal(t, PresentBlur, d.Presentation)

	assert.True(t, mustEval(t, PanditContact, verified).Allowed())
}

func TestVerifiedOnlyFeatures(t *testing.T) {
	cases := []struct {
		feature      Feature
		kind         Kind
		presentation Presentation
	}{
		{PanditBooking, BlurWithUpsell, PresentBlur},
		{EventRegistration, BlurWithUpsell, PresentBlur},
		{Donations, HideOrRedirect, PresentFullPageBlock},
		{GalleryDownload, BlurWithUpsell, PresentBanner},
		{LiveStream, BlurWithUpsell, PresentLockPanel},
	}
	for _, tc := range cases {
		t.Run(string(tc.feature), func(t *testing.T) {
			assert.Equal(t, loginDecision, mustEval(t, tc.feature, anonymous))

			for _, s := range []Subject{unverified, pending, rejected} {
				d := mustEval(t, tc.feature, s)
				assert.Equal(t, tc.kind, d.Kind)
				assert.Equal(t, TargetRegister, d.Target)
				assert.Equal(t, tc.presentation, d.Presentation)
				assert.NotEmpty(t, d.Message)
			}

			assert.True(t, mustEval(t, tc.feature, verified).Allowed())
		})
	}
}

func TestPendingMemberCannotRegisterForEvents(t *testing.T) {
	d := mustEval(t, EventRegistration, pending)
	assert.Equal(t, BlurWithUpsell, d.Kind)
	assert.Equal(t, TargetRegister, d.Target)
}

func TestReviewNeedsSignInOnly(t *testing.T) {
	d := mustEval(t, PanditReview, anonymous)
	assert.Equal(t, HideOrRedirect, d.Kind)
	assert.Equal(t, TargetLogin, d.Target)

	for _, s := range []Subject{unverified, pending, rejected, verified} {
		assert.True(t, mustEval(t, PanditReview, s).Allowed())
	}
}

func TestAdminDashboard(t *testing.T) {
	for _, s := range []Subject{unverified, pending, verified} {
		d := mustEval(t, AdminDashboard, s)
		assert.Equal(t, HideOrRedirect, d.Kind)
		assert.Equal(t, TargetHome, d.Target)
	}
	assert.True(t, mustEval(t, AdminDashboard, adminOnly).Allowed())

	d := mustEval(t, AdminDashboard, anonymous)
	assert.Equal(t, TargetLogin, d.Target)
}

func TestAdminFlagWithoutAuthenticationIsIgnored(t *testing.T) {
	d := mustEval(t, AdminDashboard, Subject{IsAdmin: true})
	assert.False(t, d.Allowed())
	d = mustEval(t, Donations, Subject{Status: types.VerificationVerified})
	assert.Equal(t, TargetLogin, d.Target)
}

func TestUnknownFeature(t *testing.T) {
	_, err := Evaluate("bogus", verified)
	assert.ErrorIs(t, err, ErrUnknownFeature)
	assert.Panics(t, func() { MustFeature("bogus") })
	assert.Equal(t, Donations, MustFeature("donations"))
}

func TestEvaluateAllCoversEveryFeature(t *testing.T) {
	all := EvaluateAll(verified)
	assert.Len(t, all, len(Features()))
	for _, f := range Features() {
		_, ok := all[f]
		assert.True(t, ok, f)
	}
	assert.False(t, all[AdminDashboard].Allowed())
}
