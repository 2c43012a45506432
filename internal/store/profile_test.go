package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samajportal/apiserver/types"
)

var profileRowColumns = []string{
	"id", "full_name", "mobile", "email", "gotra", "father_name", "native_village",
	"reference_name", "reference_mobile", "verification_status", "rejection_reason", "created_at", "updated_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestProfileRepository_GetProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(profileRowColumns).
		AddRow(7, "Ramesh", "9876543210", "", "Bharadwaj", "", "", "", "", "rejected", "Gotra mismatch", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE id = $1")).
		WithArgs(7).
		WillReturnRows(rows)

	p, err := repo.GetProfile(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationRejected, p.VerificationStatus)
	require.NotNil(t, p.RejectionReason)
	assert.Equal(t, "Gotra mismatch", *p.RejectionReason)

	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE id = $1")).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows(profileRowColumns))
	_, err = repo.GetProfile(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_GetProfileNullReason(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(profileRowColumns).
		AddRow(3, "Sita", "9000000000", "sita@example.com", "", "", "", "", "", "none", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE id = $1")).
		WithArgs(3).
		WillReturnRows(rows)

	p, err := repo.GetProfile(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, p.RejectionReason)
	assert.Equal(t, types.VerificationNone, p.VerificationStatus)
}

func TestProfileRepository_UpdateProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)

	reason := "Gotra mismatch"
	profile := types.Profile{
		ID:                 5,
		FullName:           "Ramesh",
		Mobile:             "9876543210",
		Gotra:              "Kashyap",
		VerificationStatus: types.VerificationRejected,
		RejectionReason:    &reason,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles")).
		WithArgs("Ramesh", "9876543210", "", "Kashyap", "", "", "", "", "rejected", "Gotra mismatch", sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateProfile(context.Background(), profile)
	require.NoError(t, err)
	assert.False(t, updated.UpdatedAt.IsZero())

	profile.VerificationStatus = types.VerificationVerified
	profile.RejectionReason = nil
	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles")).
		WithArgs("Ramesh", "9876543210", "", "Kashyap", "", "", "", "", "verified", nil, sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = repo.UpdateProfile(context.Background(), profile)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_ListByStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM profiles WHERE verification_status = $1")).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY updated_at, id")).
		WithArgs("pending", 0, 20).
		WillReturnRows(sqlmock.NewRows(profileRowColumns).
			AddRow(1, "A", "1", "", "G", "", "", "", "", "pending", nil, now, now).
			AddRow(2, "B", "2", "", "G", "", "", "", "", "pending", nil, now, now))

	profiles, total, err := repo.ListByStatus(context.Background(), types.VerificationPending, -1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, profiles, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_CountByStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY verification_status")).
		WillReturnRows(sqlmock.NewRows([]string{"verification_status", "count"}).
			AddRow("pending", 4).
			AddRow("verified", 10))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[types.VerificationPending])
	assert.Equal(t, 10, counts[types.VerificationVerified])
	assert.Equal(t, 0, counts[types.VerificationRejected])
}

func TestProfileRepository_DeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM profiles WHERE id = $1")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 9), ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM profiles WHERE id = $1")).
		WithArgs(9).
		WillReturnError(errors.New("connection reset"))
	err := repo.Delete(context.Background(), 9)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestProfileRepository_CreateProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepository(db)

	profile := types.Profile{
		ID:                 9,
		FullName:           "Ramesh",
		Mobile:             "9876543210",
		Gotra:              "Kashyap",
		VerificationStatus: types.VerificationPending,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WithArgs(9, "Ramesh", "9876543210", "", "Kashyap", "", "", "", "", "pending", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := repo.CreateProfile(context.Background(), profile)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WillReturnError(&pq.Error{Code: "23503"})
	_, err = repo.CreateProfile(context.Background(), types.Profile{ID: 10, VerificationStatus: types.VerificationPending})
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WillReturnError(&pq.Error{Code: "23505"})
	_, err = repo.CreateProfile(context.Background(), profile)
	assert.ErrorIs(t, err, ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}
