package services

import (
	"context"

	"github.com/samajportal/apiserver/internal/notify"
	"github.com/samajportal/apiserver/internal/sanitize"
	"github.com/samajportal/apiserver/types"
)

// NotificationRepository defines read operations on stored notifications.
type NotificationRepository interface {
	ListForMember(ctx context.Context, memberID, limit int) ([]types.Notification, error)
	MarkRead(ctx context.Context, id, memberID int) error
}

// NotificationService exposes a member's inbox and admin broadcasts.
type NotificationService struct {
	repo       NotificationRepository
	dispatcher notify.Dispatcher
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo NotificationRepository, dispatcher notify.Dispatcher) *NotificationService {
	return &NotificationService{repo: repo, dispatcher: dispatcher}
}

// Inbox returns the newest notifications of a member.
func (s *NotificationService) Inbox(ctx context.Context, memberID, limit int) ([]types.Notification, error) {
	return s.repo.ListForMember(ctx, memberID, clampLimit(limit))
}

// MarkRead marks a member's own notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, memberID, id int) error {
	return s.repo.MarkRead(ctx, id, memberID)
}

// Broadcast queues a notification for every member.
func (s *NotificationService) Broadcast(ctx context.Context, title, body string) error {
	title = sanitize.Text(title)
	if title == "" {
		return invalid("title is required")
	}
	s.dispatcher.Broadcast(ctx, title, sanitize.Text(body))
	return nil
}
