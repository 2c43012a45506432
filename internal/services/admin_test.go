package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samajportal/apiserver/types"
)

type fakeInbox struct {
	rows []types.Notification
}

func (f *fakeInbox) ListForMember(_ context.Context, memberID, _ int) ([]types.Notification, error) {
	var out []types.Notification
	for _, n := range f.rows {
		if n.MemberID == memberID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, id, memberID int) error {
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].MemberID == memberID {
			now := time.Now()
			f.rows[i].ReadAt = &now
			return nil
		}
	}
	return errBackend
}

func TestAdminService_Summary(t *testing.T) {
	verificationSvc, _, _, _, _ := newVerificationFixture(
		types.Profile{ID: 1, VerificationStatus: types.VerificationPending},
		types.Profile{ID: 2, VerificationStatus: types.VerificationPending},
		types.Profile{ID: 3, VerificationStatus: types.VerificationVerified},
	)
	events := NewEventService(&fakeEvents{events: map[int]types.Event{
		1: {ID: 1, StartsAt: time.Now().Add(time.Hour)},
	}}, nil)
	donations := NewDonationService(&fakeDonations{rows: []types.Donation{{Kind: types.DonationMonetary, AmountMinor: 100}}}, nil)

	summary, err := NewAdminService(verificationSvc, events, donations).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PendingReview)
	assert.Equal(t, 1, summary.Members[types.VerificationVerified])
	assert.Equal(t, 1, summary.UpcomingEvents)
	assert.Equal(t, int64(100), summary.Donations.MonetaryMinor)
}

func TestNotificationService(t *testing.T) {
	inbox := &fakeInbox{rows: []types.Notification{{ID: 1, MemberID: 4, Title: "Hi"}, {ID: 2, MemberID: 5}}}
	dispatcher := &recordingDispatcher{}
	svc := NewNotificationService(inbox, dispatcher)

	rows, err := svc.Inbox(context.Background(), 4, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, svc.MarkRead(context.Background(), 4, 1))
	assert.NotNil(t, inbox.rows[0].ReadAt)

	assert.ErrorIs(t, svc.Broadcast(context.Background(), " ", "body"), ErrInvalidInput)
	require.NoError(t, svc.Broadcast(context.Background(), "Holi Milan", "Saturday 5pm"))
	require.Len(t, dispatcher.sent, 1)
	assert.True(t, dispatcher.sent[0].broadcast)
}
