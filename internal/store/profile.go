package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samajportal/apiserver/types"
)

// ProfileRepository handles persistence for member profiles.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, full_name, mobile, email, gotra, father_name, native_village,
		reference_name, reference_mobile, verification_status, rejection_reason, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (types.Profile, error) {
	var profile types.Profile
	var reason sql.NullString
	err := row.Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Mobile,
		&profile.Email,
		&profile.Gotra,
		&profile.FatherName,
		&profile.NativeVillage,
		&profile.ReferenceName,
		&profile.ReferenceMobile,
		&profile.VerificationStatus,
		&reason,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, err
	}
	if reason.Valid {
		profile.RejectionReason = &reason.String
	}
	return profile, nil
}

// GetProfile returns ErrNotFound when the member has no profile row.
func (r *ProfileRepository) GetProfile(ctx context.Context, id int) (types.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(r.db.QueryRowContext(ctx, query, id))
}

// ListByStatus returns profiles in the given state, oldest update first,
// so the review queue is worked in submission order.
func (r *ProfileRepository) ListByStatus(ctx context.Context, status types.VerificationStatus, offset, limit int) ([]types.Profile, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM profiles WHERE verification_status = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE verification_status = $1
		ORDER BY updated_at, id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, status, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]types.Profile, 0, limit)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// UpdateProfile writes the lineage fields and verification state.
// Concurrent writers follow last-write-wins.
func (r *ProfileRepository) UpdateProfile(ctx context.Context, profile types.Profile) (types.Profile, error) {
	profile.UpdatedAt = time.Now()

	var reason sql.NullString
	if profile.RejectionReason != nil {
		reason = sql.NullString{String: *profile.RejectionReason, Valid: true}
	}

	const query = `
		UPDATE profiles
		SET full_name = $1,
			mobile = $2,
			email = $3,
			gotra = $4,
			father_name = $5,
			native_village = $6,
			reference_name = $7,
			reference_mobile = $8,
			verification_status = $9,
			rejection_reason = $10,
			updated_at = $11
		WHERE id = $12`
	result, err := r.db.ExecContext(
		ctx,
		query,
		profile.FullName,
		profile.Mobile,
		profile.Email,
		profile.Gotra,
		profile.FatherName,
		profile.NativeVillage,
		profile.ReferenceName,
		profile.ReferenceMobile,
		profile.VerificationStatus,
		reason,
		profile.UpdatedAt,
		profile.ID,
	)
	if err != nil {
		return types.Profile{}, err
	}
	if err := rowsAffected(result.RowsAffected()); err != nil {
		return types.Profile{}, err
	}
	return profile, nil
}

// CreateProfile inserts a profile for an existing account, restoring one
// an admin deleted. A missing account yields ErrNotFound and an existing
// profile ErrConflict.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile types.Profile) (types.Profile, error) {
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	var reason sql.NullString
	if profile.RejectionReason != nil {
		reason = sql.NullString{String: *profile.RejectionReason, Valid: true}
	}

	const query = `
		INSERT INTO profiles (id, full_name, mobile, email, gotra, father_name, native_village,
			reference_name, reference_mobile, verification_status, rejection_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		profile.ID,
		profile.FullName,
		profile.Mobile,
		profile.Email,
		profile.Gotra,
		profile.FatherName,
		profile.NativeVillage,
		profile.ReferenceName,
		profile.ReferenceMobile,
		profile.VerificationStatus,
		reason,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, mapWriteError(err)
	}
	return profile, nil
}

// Delete removes the profile row. The account remains.
func (r *ProfileRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM profiles WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return rowsAffected(result.RowsAffected())
}

// CountByStatus returns the number of profiles in each verification state.
func (r *ProfileRepository) CountByStatus(ctx context.Context) (map[types.VerificationStatus]int, error) {
	const query = `SELECT verification_status, COUNT(1) FROM profiles GROUP BY verification_status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[types.VerificationStatus]int{
		types.VerificationNone:     0,
		types.VerificationPending:  0,
		types.VerificationVerified: 0,
		types.VerificationRejected: 0,
	}
	for rows.Next() {
		var status types.VerificationStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
