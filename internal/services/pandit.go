package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/sanitize"
	"github.com/samajportal/apiserver/internal/store"
	"github.com/samajportal/apiserver/types"
)

// PanditRepository defines persistence operations for the pandit
// directory, bookings and reviews.
type PanditRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Pandit, int, error)
	Get(ctx context.Context, id int) (types.Pandit, error)
	CreateBooking(ctx context.Context, booking types.Booking) (types.Booking, error)
	ListBookingsByMember(ctx context.Context, memberID int) ([]types.Booking, error)
	ListBookings(ctx context.Context, status types.BookingStatus, offset, limit int) ([]types.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int, status types.BookingStatus) error
	ListReviews(ctx context.Context, panditID int) ([]types.Review, error)
	GetReview(ctx context.Context, id int) (types.Review, error)
	CreateReview(ctx context.Context, review types.Review) (types.Review, error)
	UpdateReview(ctx context.Context, review types.Review) (types.Review, error)
	DeleteReview(ctx context.Context, id int) error
}

// BookingRequest is the payload for a new appointment.
type BookingRequest struct {
	Ceremony    string    `json:"ceremony"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes"`
}

// ReviewRequest is the payload for creating or editing a review.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// PanditService encapsulates directory, booking and review use-cases.
type PanditService struct {
	repo   PanditRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewPanditService constructs a PanditService.
func NewPanditService(repo PanditRepository, logger *zap.Logger) *PanditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanditService{repo: repo, logger: logger, now: time.Now}
}

// List returns a page of the pandit directory.
func (s *PanditService) List(ctx context.Context, offset, limit int) ([]types.Pandit, int, error) {
	return s.repo.List(ctx, offset, clampLimit(limit))
}

func (s *PanditService) Get(ctx context.Context, id int) (types.Pandit, error) {
	return s.repo.Get(ctx, id)
}

// Book requests an appointment with an active pandit.
func (s *PanditService) Book(ctx context.Context, memberID, panditID int, req BookingRequest) (types.Booking, error) {
	req.Ceremony = sanitize.Text(req.Ceremony)
	if req.Ceremony == "" {
		return types.Booking{}, invalid("ceremony is required")
	}
	if !req.ScheduledAt.After(s.now()) {
		return types.Booking{}, invalid("scheduled_at must be in the future")
	}
	if _, err := s.repo.Get(ctx, panditID); err != nil {
		return types.Booking{}, err
	}

	booking, err := s.repo.CreateBooking(ctx, types.Booking{
		PanditID:    panditID,
		MemberID:    memberID,
		Ceremony:    req.Ceremony,
		ScheduledAt: req.ScheduledAt.UTC(),
		Notes:       sanitize.Text(req.Notes),
		Status:      types.BookingPending,
	})
	if err != nil {
		return types.Booking{}, err
	}
	s.logger.Info("booking requested",
		zap.Int("booking_id", booking.ID),
		zap.Int("pandit_id", panditID),
		zap.Int("member_id", memberID))
	return booking, nil
}

// MyBookings lists the bookings a member has made.
func (s *PanditService) MyBookings(ctx context.Context, memberID int) ([]types.Booking, error) {
	return s.repo.ListBookingsByMember(ctx, memberID)
}

// Bookings lists bookings for the back-office. An empty status lists all.
func (s *PanditService) Bookings(ctx context.Context, status types.BookingStatus, offset, limit int) ([]types.Booking, error) {
	if status != "" && !status.Valid() {
		return nil, invalid("unknown booking status %q", status)
	}
	return s.repo.ListBookings(ctx, status, offset, clampLimit(limit))
}

// UpdateBookingStatus moves a booking to status.
func (s *PanditService) UpdateBookingStatus(ctx context.Context, id int, status types.BookingStatus) error {
	if !status.Valid() {
		return invalid("unknown booking status %q", status)
	}
	return s.repo.UpdateBookingStatus(ctx, id, status)
}

// Reviews lists the reviews of a pandit.
func (s *PanditService) Reviews(ctx context.Context, panditID int) ([]types.Review, error) {
	return s.repo.ListReviews(ctx, panditID)
}

// CreateReview adds the member's review of a pandit. A second review of
// the same pandit yields store.ErrConflict.
func (s *PanditService) CreateReview(ctx context.Context, memberID, panditID int, req ReviewRequest) (types.Review, error) {
	if err := validateReview(&req); err != nil {
		return types.Review{}, err
	}
	if _, err := s.repo.Get(ctx, panditID); err != nil {
		return types.Review{}, err
	}
	return s.repo.CreateReview(ctx, types.Review{
		PanditID: panditID,
		MemberID: memberID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
}

// UpdateReview edits a review owned by memberID.
func (s *PanditService) UpdateReview(ctx context.Context, memberID, panditID, reviewID int, req ReviewRequest) (types.Review, error) {
	if err := validateReview(&req); err != nil {
		return types.Review{}, err
	}
	review, err := s.ownedReview(ctx, panditID, reviewID)
	if err != nil {
		return types.Review{}, err
	}
	if review.MemberID != memberID {
		return types.Review{}, ErrForbidden
	}
	review.Rating = req.Rating
	review.Comment = req.Comment
	return s.repo.UpdateReview(ctx, review)
}

// DeleteReview removes a review. Members may delete their own reviews;
// administrators may delete any.
func (s *PanditService) DeleteReview(ctx context.Context, memberID int, isAdmin bool, panditID, reviewID int) error {
	review, err := s.ownedReview(ctx, panditID, reviewID)
	if err != nil {
		return err
	}
	if review.MemberID != memberID && !isAdmin {
		return ErrForbidden
	}
	return s.repo.DeleteReview(ctx, reviewID)
}

func (s *PanditService) ownedReview(ctx context.Context, panditID, reviewID int) (types.Review, error) {
	review, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return types.Review{}, err
	}
	if review.PanditID != panditID {
		return types.Review{}, store.ErrNotFound
	}
	return review, nil
}

func validateReview(req *ReviewRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return invalid("rating must be between 1 and 5")
	}
	req.Comment = sanitize.Text(req.Comment)
	return nil
}
