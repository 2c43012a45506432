package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/samajportal/apiserver/types"
)

// NotificationRepository handles persistence for in-app notifications.
type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, memberID int, title, body string) error {
	const query = `
		INSERT INTO notifications (member_id, title, body, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, memberID, title, body, time.Now())
	return mapWriteError(err)
}

// InsertBroadcast stores one notification row per member.
func (r *NotificationRepository) InsertBroadcast(ctx context.Context, title, body string) (int64, error) {
	const query = `
		INSERT INTO notifications (member_id, title, body, created_at)
		SELECT id, $1, $2, $3 FROM profiles`
	result, err := r.db.ExecContext(ctx, query, title, body, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListForMember returns a member's notifications, newest first.
func (r *NotificationRepository) ListForMember(ctx context.Context, memberID, limit int) ([]types.Notification, error) {
	if limit < 1 {
		limit = 50
	}
	const query = `
		SELECT id, member_id, title, body, read_at, created_at
		FROM notifications
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, memberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Notification
	for rows.Next() {
		var n types.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.MemberID, &n.Title, &n.Body, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead sets read_at on a notification owned by memberID.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, memberID int) error {
	const query = `
		UPDATE notifications
		SET read_at = COALESCE(read_at, $1)
		WHERE id = $2 AND member_id = $3`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, memberID)
	if err != nil {
		return err
	}
	return rowsAffected(result.RowsAffected())
}
