package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/metrics"
	"github.com/samajportal/apiserver/internal/notify"
	"github.com/samajportal/apiserver/internal/sanitize"
	"github.com/samajportal/apiserver/internal/store"
	"github.com/samajportal/apiserver/internal/verification"
	"github.com/samajportal/apiserver/types"
)

// ProfileRepository defines persistence operations for member profiles.
type ProfileRepository interface {
	GetProfile(ctx context.Context, id int) (types.Profile, error)
	CreateProfile(ctx context.Context, profile types.Profile) (types.Profile, error)
	UpdateProfile(ctx context.Context, profile types.Profile) (types.Profile, error)
	ListByStatus(ctx context.Context, status types.VerificationStatus, offset, limit int) ([]types.Profile, int, error)
	CountByStatus(ctx context.Context) (map[types.VerificationStatus]int, error)
	Delete(ctx context.Context, id int) error
}

// SessionRevoker ends every session of a member.
type SessionRevoker interface {
	RevokeAllSessions(ctx context.Context, accountID int) error
}

const (
	titleApproved = "Verification approved"
	titleRejected = "Verification not approved"
)

// VerificationService runs the verification lifecycle against the
// profile store and notifies members of admin decisions.
type VerificationService struct {
	profiles ProfileRepository
	sessions SessionRevoker
	notifier notify.Dispatcher
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewVerificationService constructs a VerificationService. Notifications go
// through notifier; m may be nil.
func NewVerificationService(
	profiles ProfileRepository,
	sessions SessionRevoker,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		profiles: profiles,
		sessions: sessions,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// GetProfile returns the member's profile. A member whose profile was
// deleted gets an unsaved profile in state none, from which they can
// submit again.
func (s *VerificationService) GetProfile(ctx context.Context, memberID int) (types.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return blankProfile(memberID), nil
	}
	return profile, err
}

// Submit stores a member's lineage details and moves the profile to
// pending. A *verification.ValidationError leaves the stored profile as is.
// A deleted profile is recreated from the submission.
func (s *VerificationService) Submit(ctx context.Context, memberID int, sub types.LineageSubmission) (types.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, memberID)
	missing := errors.Is(err, store.ErrNotFound)
	switch {
	case missing:
		profile = blankProfile(memberID)
	case err != nil:
		return types.Profile{}, err
	}

	out, err := verification.Submit(profile, sanitizeSubmission(sub))
	if err != nil {
		return profile, err
	}

	var saved types.Profile
	if missing {
		saved, err = s.recreate(ctx, out)
	} else {
		saved, err = s.save(ctx, out)
	}
	if err != nil {
		return profile, err
	}
	s.logger.Info("verification submitted",
		zap.Int("member_id", memberID),
		zap.String("from", string(out.From)))
	return saved, nil
}

// Approve verifies a pending member. Outside pending it reports the
// unchanged profile and sends nothing.
func (s *VerificationService) Approve(ctx context.Context, memberID int) (verification.Outcome, error) {
	profile, err := s.profiles.GetProfile(ctx, memberID)
	if err != nil {
		return verification.Outcome{}, err
	}

	out := verification.Approve(profile)
	if !out.Changed {
		return out, nil
	}
	if out.Profile, err = s.save(ctx, out); err != nil {
		return verification.Outcome{}, err
	}

	s.notifier.Notify(ctx, memberID, titleApproved,
		"Your lineage details have been verified. All member features are now unlocked.")
	s.logger.Info("verification approved", zap.Int("member_id", memberID))
	return out, nil
}

// Reject rejects a pending member with reason. Outside pending it
// reports the unchanged profile and sends nothing.
func (s *VerificationService) Reject(ctx context.Context, memberID int, reason string) (verification.Outcome, error) {
	profile, err := s.profiles.GetProfile(ctx, memberID)
	if err != nil {
		return verification.Outcome{}, err
	}

	out, err := verification.Reject(profile, sanitize.Text(reason))
	if err != nil {
		return out, err
	}
	if !out.Changed {
		return out, nil
	}
	if out.Profile, err = s.save(ctx, out); err != nil {
		return verification.Outcome{}, err
	}

	s.notifier.Notify(ctx, memberID, titleRejected, *out.Profile.RejectionReason)
	s.logger.Info("verification rejected", zap.Int("member_id", memberID))
	return out, nil
}

// Queue lists profiles in status for the admin review screen.
func (s *VerificationService) Queue(ctx context.Context, status types.VerificationStatus, offset, limit int) ([]types.Profile, int, error) {
	if !status.Valid() {
		return nil, 0, invalid("unknown status %q", status)
	}
	return s.profiles.ListByStatus(ctx, status, offset, clampLimit(limit))
}

// CountByStatus reports how many profiles are in each state.
func (s *VerificationService) CountByStatus(ctx context.Context) (map[types.VerificationStatus]int, error) {
	return s.profiles.CountByStatus(ctx)
}

// DeleteProfile removes a member's profile and ends their sessions. The
// account itself is kept; a later sign-in resolves to an unverified member.
func (s *VerificationService) DeleteProfile(ctx context.Context, memberID int) error {
	if err := s.profiles.Delete(ctx, memberID); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllSessions(ctx, memberID); err != nil {
		s.logger.Warn("revoke sessions of deleted profile", zap.Int("member_id", memberID), zap.Error(err))
	}
	s.logger.Info("profile deleted", zap.Int("member_id", memberID))
	return nil
}

func (s *VerificationService) save(ctx context.Context, out verification.Outcome) (types.Profile, error) {
	if err := verification.CheckInvariant(out.Profile); err != nil {
		return types.Profile{}, err
	}
	saved, err := s.profiles.UpdateProfile(ctx, out.Profile)
	if err != nil {
		return types.Profile{}, fmt.Errorf("update profile %d: %w", out.Profile.ID, err)
	}
	if out.Changed {
		s.metrics.ObserveTransition(string(out.From), string(out.To))
	}
	return saved, nil
}

func (s *VerificationService) recreate(ctx context.Context, out verification.Outcome) (types.Profile, error) {
	if err := verification.CheckInvariant(out.Profile); err != nil {
		return types.Profile{}, err
	}
	saved, err := s.profiles.CreateProfile(ctx, out.Profile)
	if err != nil {
		return types.Profile{}, fmt.Errorf("recreate profile %d: %w", out.Profile.ID, err)
	}
	s.metrics.ObserveTransition(string(out.From), string(out.To))
	return saved, nil
}

func blankProfile(memberID int) types.Profile {
	return types.Profile{ID: memberID, VerificationStatus: types.VerificationNone}
}

func sanitizeSubmission(sub types.LineageSubmission) types.LineageSubmission {
	return types.LineageSubmission{
		FullName:        sanitize.Text(sub.FullName),
		Mobile:          sanitize.Text(sub.Mobile),
		Email:           sanitize.Text(sub.Email),
		Gotra:           sanitize.Text(sub.Gotra),
		FatherName:      sanitize.Text(sub.FatherName),
		NativeVillage:   sanitize.Text(sub.NativeVillage),
		ReferenceName:   sanitize.Text(sub.ReferenceName),
		ReferenceMobile: sanitize.Text(sub.ReferenceMobile),
	}
}
