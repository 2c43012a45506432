package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/samajportal/apiserver/types"
)

// PanditRepository handles persistence for the pandit directory,
// bookings and reviews.
type PanditRepository struct {
	db *sql.DB
}

func NewPanditRepository(db *sql.DB) *PanditRepository {
	return &PanditRepository{db: db}
}

const panditSelect = `
		SELECT p.id, p.name, p.specializations, p.location, p.bio, p.experience_years,
			p.phone, p.whatsapp, COALESCE(rv.avg_rating, 0), COALESCE(rv.review_count, 0),
			p.is_active, p.created_at, p.updated_at
		FROM pandits p
		LEFT JOIN (
			SELECT pandit_id, AVG(rating)::float8 AS avg_rating, COUNT(1) AS review_count
			FROM reviews
			GROUP BY pandit_id
		) rv ON rv.pandit_id = p.id`

func scanPandit(row interface{ Scan(...any) error }) (types.Pandit, error) {
	var pandit types.Pandit
	var specsJSON []byte
	err := row.Scan(
		&pandit.ID,
		&pandit.Name,
		&specsJSON,
		&pandit.Location,
		&pandit.Bio,
		&pandit.ExperienceYears,
		&pandit.Phone,
		&pandit.WhatsApp,
		&pandit.AverageRating,
		&pandit.ReviewCount,
		&pandit.IsActive,
		&pandit.CreatedAt,
		&pandit.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Pandit{}, ErrNotFound
		}
		return types.Pandit{}, err
	}
	_ = json.Unmarshal(specsJSON, &pandit.Specializations)
	return pandit, nil
}

// List returns active pandits ordered by name.
func (r *PanditRepository) List(ctx context.Context, offset, limit int) ([]types.Pandit, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM pandits WHERE is_active`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := panditSelect + `
		WHERE p.is_active
		ORDER BY p.name, p.id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	pandits := make([]types.Pandit, 0, limit)
	for rows.Next() {
		pandit, err := scanPandit(rows)
		if err != nil {
			return nil, 0, err
		}
		pandits = append(pandits, pandit)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return pandits, total, nil
}

func (r *PanditRepository) Get(ctx context.Context, id int) (types.Pandit, error) {
	query := panditSelect + ` WHERE p.id = $1 AND p.is_active`
	return scanPandit(r.db.QueryRowContext(ctx, query, id))
}

func (r *PanditRepository) CreateBooking(ctx context.Context, booking types.Booking) (types.Booking, error) {
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if booking.Status == "" {
		booking.Status = types.BookingPending
	}

	const query = `
		INSERT INTO bookings (pandit_id, member_id, ceremony, scheduled_at, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		booking.PanditID,
		booking.MemberID,
		booking.Ceremony,
		booking.ScheduledAt,
		booking.Notes,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Scan(&booking.ID); err != nil {
		return types.Booking{}, mapWriteError(err)
	}
	return booking, nil
}

const bookingColumns = `id, pandit_id, member_id, ceremony, scheduled_at, notes, status, created_at, updated_at`

func scanBookings(rows *sql.Rows) ([]types.Booking, error) {
	defer rows.Close()
	var bookings []types.Booking
	for rows.Next() {
		var b types.Booking
		if err := rows.Scan(
			&b.ID,
			&b.PanditID,
			&b.MemberID,
			&b.Ceremony,
			&b.ScheduledAt,
			&b.Notes,
			&b.Status,
			&b.CreatedAt,
			&b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *PanditRepository) ListBookingsByMember(ctx context.Context, memberID int) ([]types.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE member_id = $1 ORDER BY scheduled_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// ListBookings returns bookings, optionally filtered by status.
func (r *PanditRepository) ListBookings(ctx context.Context, status types.BookingStatus, offset, limit int) ([]types.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ($1 = '' OR status = $1)
		ORDER BY scheduled_at, id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, string(status), offset, limit)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func (r *PanditRepository) UpdateBookingStatus(ctx context.Context, id int, status types.BookingStatus) error {
	const query = `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}
	return rowsAffected(result.RowsAffected())
}

const reviewSelect = `
		SELECT rv.id, rv.pandit_id, rv.member_id, COALESCE(pr.full_name, ''), rv.rating, rv.comment,
			rv.created_at, rv.updated_at
		FROM reviews rv
		LEFT JOIN profiles pr ON pr.id = rv.member_id`

func scanReview(row interface{ Scan(...any) error }) (types.Review, error) {
	var review types.Review
	err := row.Scan(
		&review.ID,
		&review.PanditID,
		&review.MemberID,
		&review.MemberName,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Review{}, ErrNotFound
		}
		return types.Review{}, err
	}
	return review, nil
}

func (r *PanditRepository) ListReviews(ctx context.Context, panditID int) ([]types.Review, error) {
	query := reviewSelect + ` WHERE rv.pandit_id = $1 ORDER BY rv.created_at DESC, rv.id DESC`
	rows, err := r.db.QueryContext(ctx, query, panditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []types.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func (r *PanditRepository) GetReview(ctx context.Context, id int) (types.Review, error) {
	query := reviewSelect + ` WHERE rv.id = $1`
	return scanReview(r.db.QueryRowContext(ctx, query, id))
}

// CreateReview inserts a review. A second review by the same member for
// the same pandit yields ErrConflict.
func (r *PanditRepository) CreateReview(ctx context.Context, review types.Review) (types.Review, error) {
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	const query = `
		INSERT INTO reviews (pandit_id, member_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		review.PanditID,
		review.MemberID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	).Scan(&review.ID); err != nil {
		return types.Review{}, mapWriteError(err)
	}
	return review, nil
}

func (r *PanditRepository) UpdateReview(ctx context.Context, review types.Review) (types.Review, error) {
	review.UpdatedAt = time.Now()
	const query = `UPDATE reviews SET rating = $1, comment = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, review.Rating, review.Comment, review.UpdatedAt, review.ID)
	if err != nil {
		return types.Review{}, err
	}
	if err := rowsAffected(result.RowsAffected()); err != nil {
		return types.Review{}, err
	}
	return review, nil
}

func (r *PanditRepository) DeleteReview(ctx context.Context, id int) error {
	const query = `DELETE FROM reviews WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return rowsAffected(result.RowsAffected())
}
