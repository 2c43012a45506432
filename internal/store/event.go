package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samajportal/apiserver/types"
)

// ErrCapacity is returned when an event has no room left.
var ErrCapacity = errors.New("event is full")

// EventRepository handles persistence for events and registrations.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventSelect = `
		SELECT e.id, e.title, e.description, e.location, e.starts_at, e.ends_at, e.capacity,
			COALESCE((SELECT SUM(er.attendees) FROM event_registrations er WHERE er.event_id = e.id), 0),
			e.created_at, e.updated_at
		FROM events e`

func scanEvent(row interface{ Scan(...any) error }) (types.Event, error) {
	var event types.Event
	var endsAt sql.NullTime
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.StartsAt,
		&endsAt,
		&event.Capacity,
		&event.Registered,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Event{}, ErrNotFound
		}
		return types.Event{}, err
	}
	if endsAt.Valid {
		event.EndsAt = &endsAt.Time
	}
	return event, nil
}

// List returns events starting at or after since, soonest first.
func (r *EventRepository) List(ctx context.Context, since time.Time, offset, limit int) ([]types.Event, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM events WHERE starts_at >= $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, since).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := eventSelect + `
		WHERE e.starts_at >= $1
		ORDER BY e.starts_at, e.id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, since, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]types.Event, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *EventRepository) Get(ctx context.Context, id int) (types.Event, error) {
	query := eventSelect + ` WHERE e.id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

// Register adds a registration while holding a lock on the event row, so
// concurrent registrations cannot overfill it.
func (r *EventRepository) Register(ctx context.Context, reg types.EventRegistration) (types.EventRegistration, error) {
	reg.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.EventRegistration{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var capacity int
	const lockQuery = `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lockQuery, reg.EventID).Scan(&capacity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.EventRegistration{}, ErrNotFound
		}
		return types.EventRegistration{}, err
	}

	if capacity > 0 {
		var registered int
		const sumQuery = `SELECT COALESCE(SUM(attendees), 0) FROM event_registrations WHERE event_id = $1`
		if err := tx.QueryRowContext(ctx, sumQuery, reg.EventID).Scan(&registered); err != nil {
			return types.EventRegistration{}, err
		}
		if registered+reg.Attendees > capacity {
			return types.EventRegistration{}, ErrCapacity
		}
	}

	const insertQuery = `
		INSERT INTO event_registrations (event_id, member_id, attendees, attended, created_at)
		VALUES ($1, $2, $3, FALSE, $4)`
	if _, err := tx.ExecContext(ctx, insertQuery, reg.EventID, reg.MemberID, reg.Attendees, reg.CreatedAt); err != nil {
		return types.EventRegistration{}, mapWriteError(err)
	}

	if err := tx.Commit(); err != nil {
		return types.EventRegistration{}, err
	}
	return reg, nil
}

// CancelRegistration returns ErrNotFound when there was no registration.
func (r *EventRepository) CancelRegistration(ctx context.Context, eventID, memberID int) error {
	const query = `DELETE FROM event_registrations WHERE event_id = $1 AND member_id = $2`
	result, err := r.db.ExecContext(ctx, query, eventID, memberID)
	if err != nil {
		return err
	}
	return rowsAffected(result.RowsAffected())
}

func (r *EventRepository) ListRegistrations(ctx context.Context, eventID int) ([]types.EventRegistration, error) {
	const query = `
		SELECT er.event_id, er.member_id, COALESCE(p.full_name, ''), er.attendees, er.attended, er.created_at
		FROM event_registrations er
		LEFT JOIN profiles p ON p.id = er.member_id
		WHERE er.event_id = $1
		ORDER BY er.created_at, er.member_id`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []types.EventRegistration
	for rows.Next() {
		var reg types.EventRegistration
		if err := rows.Scan(&reg.EventID, &reg.MemberID, &reg.MemberName, &reg.Attendees, &reg.Attended, &reg.CreatedAt); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *EventRepository) MarkAttendance(ctx context.Context, eventID, memberID int, attended bool) error {
	const query = `UPDATE event_registrations SET attended = $1 WHERE event_id = $2 AND member_id = $3`
	result, err := r.db.ExecContext(ctx, query, attended, eventID, memberID)
	if err != nil {
		return err
	}
	return rowsAffected(result.RowsAffected())
}

// CountUpcoming returns the number of events starting at or after since.
func (r *EventRepository) CountUpcoming(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(1) FROM events WHERE starts_at >= $1`
	var n int
	err := r.db.QueryRowContext(ctx, query, since).Scan(&n)
	return n, err
}
