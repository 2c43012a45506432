package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/sanitize"
	"github.com/samajportal/apiserver/types"
)

const defaultCurrency = "INR"

// DonationRepository defines persistence operations for donations.
type DonationRepository interface {
	Create(ctx context.Context, d types.Donation) (types.Donation, error)
	List(ctx context.Context, memberID, offset, limit int) ([]types.Donation, error)
	Totals(ctx context.Context) (types.DonationTotals, error)
}

// DonationRequest is the payload for recording a donation.
type DonationRequest struct {
	Kind            types.DonationKind `json:"kind"`
	AmountMinor     int64              `json:"amount_minor"`
	Currency        string             `json:"currency"`
	ItemDescription string             `json:"item_description"`
	Quantity        int                `json:"quantity"`
	Purpose         string             `json:"purpose"`
}

// DonationService records monetary and in-kind donations.
type DonationService struct {
	repo   DonationRepository
	logger *zap.Logger
}

// NewDonationService constructs a DonationService.
func NewDonationService(repo DonationRepository, logger *zap.Logger) *DonationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DonationService{repo: repo, logger: logger}
}

// Donate validates and records a donation for memberID.
func (s *DonationService) Donate(ctx context.Context, memberID int, req DonationRequest) (types.Donation, error) {
	d := types.Donation{
		MemberID: memberID,
		Kind:     req.Kind,
		Purpose:  sanitize.Text(req.Purpose),
	}

	switch req.Kind {
	case types.DonationMonetary:
		if req.AmountMinor <= 0 {
			return types.Donation{}, invalid("amount_minor must be positive")
		}
		d.AmountMinor = req.AmountMinor
		d.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
		if d.Currency == "" {
			d.Currency = defaultCurrency
		}
		if len(d.Currency) != 3 {
			return types.Donation{}, invalid("currency must be a three-letter code")
		}
	case types.DonationInKind:
		d.ItemDescription = sanitize.Text(req.ItemDescription)
		if d.ItemDescription == "" {
			return types.Donation{}, invalid("item_description is required")
		}
		d.Quantity = req.Quantity
		if d.Quantity <= 0 {
			d.Quantity = 1
		}
	default:
		return types.Donation{}, invalid("kind must be %q or %q", types.DonationMonetary, types.DonationInKind)
	}

	saved, err := s.repo.Create(ctx, d)
	if err != nil {
		return types.Donation{}, err
	}
	s.logger.Info("donation recorded",
		zap.Int("donation_id", saved.ID),
		zap.Int("member_id", memberID),
		zap.String("kind", string(saved.Kind)))
	return saved, nil
}

// Mine lists a member's own donations.
func (s *DonationService) Mine(ctx context.Context, memberID, offset, limit int) ([]types.Donation, error) {
	return s.repo.List(ctx, memberID, offset, clampLimit(limit))
}

// All lists every donation for the admin dashboard.
func (s *DonationService) All(ctx context.Context, offset, limit int) ([]types.Donation, error) {
	return s.repo.List(ctx, 0, offset, clampLimit(limit))
}

// Totals sums monetary donations and counts in-kind ones.
func (s *DonationService) Totals(ctx context.Context) (types.DonationTotals, error) {
	return s.repo.Totals(ctx)
}
