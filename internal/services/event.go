package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/types"
)

const maxAttendeesPerRegistration = 10

// EventRepository defines persistence operations for events.
type EventRepository interface {
	List(ctx context.Context, since time.Time, offset, limit int) ([]types.Event, int, error)
	Get(ctx context.Context, id int) (types.Event, error)
	Register(ctx context.Context, reg types.EventRegistration) (types.EventRegistration, error)
	CancelRegistration(ctx context.Context, eventID, memberID int) error
	ListRegistrations(ctx context.Context, eventID int) ([]types.EventRegistration, error)
	MarkAttendance(ctx context.Context, eventID, memberID int, attended bool) error
	CountUpcoming(ctx context.Context, since time.Time) (int, error)
}

// EventService encapsulates event listing and registration use-cases.
type EventService struct {
	repo   EventRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewEventService constructs an EventService.
func NewEventService(repo EventRepository, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, logger: logger, now: time.Now}
}

// Upcoming lists events that have not started yet.
func (s *EventService) Upcoming(ctx context.Context, offset, limit int) ([]types.Event, int, error) {
	return s.repo.List(ctx, s.now(), offset, clampLimit(limit))
}

func (s *EventService) Get(ctx context.Context, id int) (types.Event, error) {
	return s.repo.Get(ctx, id)
}

// Register signs memberID up for an event. Past events are closed and a
// full event yields store.ErrCapacity.
func (s *EventService) Register(ctx context.Context, memberID, eventID, attendees int) (types.EventRegistration, error) {
	if attendees == 0 {
		attendees = 1
	}
	if attendees < 1 || attendees > maxAttendeesPerRegistration {
		return types.EventRegistration{}, invalid("attendees must be between 1 and %d", maxAttendeesPerRegistration)
	}

	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return types.EventRegistration{}, err
	}
	if !event.StartsAt.After(s.now()) {
		return types.EventRegistration{}, invalid("registration for this event has closed")
	}

	reg, err := s.repo.Register(ctx, types.EventRegistration{
		EventID:   eventID,
		MemberID:  memberID,
		Attendees: attendees,
	})
	if err != nil {
		return types.EventRegistration{}, err
	}
	s.logger.Info("event registration",
		zap.Int("event_id", eventID),
		zap.Int("member_id", memberID),
		zap.Int("attendees", attendees))
	return reg, nil
}

// Cancel withdraws a member's registration.
func (s *EventService) Cancel(ctx context.Context, memberID, eventID int) error {
	return s.repo.CancelRegistration(ctx, eventID, memberID)
}

// Registrations lists everyone registered for an event.
func (s *EventService) Registrations(ctx context.Context, eventID int) ([]types.EventRegistration, error) {
	if _, err := s.repo.Get(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListRegistrations(ctx, eventID)
}

// MarkAttendance records whether a registered member attended.
func (s *EventService) MarkAttendance(ctx context.Context, eventID, memberID int, attended bool) error {
	return s.repo.MarkAttendance(ctx, eventID, memberID, attended)
}

// CountUpcoming counts events that have not started yet.
func (s *EventService) CountUpcoming(ctx context.Context) (int, error) {
	return s.repo.CountUpcoming(ctx, s.now())
}
