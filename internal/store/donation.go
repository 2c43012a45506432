package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/samajportal/apiserver/types"
)

// DonationRepository handles persistence for donations.
type DonationRepository struct {
	db *sql.DB
}

func NewDonationRepository(db *sql.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

const donationColumns = `id, member_id, kind, amount_minor, currency, item_description, quantity, purpose, created_at`

func (r *DonationRepository) Create(ctx context.Context, d types.Donation) (types.Donation, error) {
	d.CreatedAt = time.Now()
	const query = `
		INSERT INTO donations (member_id, kind, amount_minor, currency, item_description, quantity, purpose, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		d.MemberID,
		d.Kind,
		d.AmountMinor,
		d.Currency,
		d.ItemDescription,
		d.Quantity,
		d.Purpose,
		d.CreatedAt,
	).Scan(&d.ID); err != nil {
		return types.Donation{}, mapWriteError(err)
	}
	return d, nil
}

// List returns donations newest first. A memberID of zero lists all.
func (r *DonationRepository) List(ctx context.Context, memberID, offset, limit int) ([]types.Donation, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}
	query := `SELECT ` + donationColumns + `
		FROM donations
		WHERE ($1 = 0 OR member_id = $1)
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, memberID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donations := make([]types.Donation, 0, limit)
	for rows.Next() {
		var d types.Donation
		if err := rows.Scan(
			&d.ID,
			&d.MemberID,
			&d.Kind,
			&d.AmountMinor,
			&d.Currency,
			&d.ItemDescription,
			&d.Quantity,
			&d.Purpose,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

func (r *DonationRepository) Totals(ctx context.Context) (types.DonationTotals, error) {
	const query = `
		SELECT COUNT(1),
			COALESCE(SUM(amount_minor) FILTER (WHERE kind = 'monetary'), 0),
			COUNT(1) FILTER (WHERE kind = 'in_kind')
		FROM donations`
	var totals types.DonationTotals
	err := r.db.QueryRowContext(ctx, query).Scan(&totals.Count, &totals.MonetaryMinor, &totals.InKindCount)
	return totals, err
}
