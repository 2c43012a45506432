package services

import (
	"context"

	"github.com/samajportal/apiserver/types"
)

// Summary is the admin dashboard overview.
type Summary struct {
	Members        map[types.VerificationStatus]int `json:"members"`
	PendingReview  int                              `json:"pending_review"`
	UpcomingEvents int                              `json:"upcoming_events"`
	Donations      types.DonationTotals             `json:"donations"`
}

// AdminService aggregates the dashboard overview.
type AdminService struct {
	verification *VerificationService
	events       *EventService
	donations    *DonationService
}

// NewAdminService constructs an AdminService over the feature services.
func NewAdminService(v *VerificationService, e *EventService, d *DonationService) *AdminService {
	return &AdminService{verification: v, events: e, donations: d}
}

// Summary collects the counts shown on the admin dashboard.
func (s *AdminService) Summary(ctx context.Context) (Summary, error) {
	counts, err := s.verification.CountByStatus(ctx)
	if err != nil {
		return Summary{}, err
	}
	upcoming, err := s.events.CountUpcoming(ctx)
	if err != nil {
		return Summary{}, err
	}
	totals, err := s.donations.Totals(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Members:        counts,
		PendingReview:  counts[types.VerificationPending],
		UpcomingEvents: upcoming,
		Donations:      totals,
	}, nil
}
