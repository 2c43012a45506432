package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samajportal/apiserver/types"
)

func TestAccountRepository_CreateWithProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
		WithArgs("9876543210", "", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WithArgs(11, "Ramesh", "9876543210", "", "none", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	account, profile, err := repo.CreateWithProfile(context.Background(), types.Account{
		Mobile:       "9876543210",
		PasswordHash: "hash",
	}, "Ramesh")
	require.NoError(t, err)
	assert.Equal(t, 11, account.ID)
	assert.Equal(t, 11, profile.ID)
	assert.Equal(t, types.VerificationNone, profile.VerificationStatus)
	assert.Nil(t, profile.RejectionReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_CreateDuplicateMobile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, _, err := repo.CreateWithProfile(context.Background(), types.Account{Mobile: "1"}, "X")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Sessions(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)
	expires := time.Now().Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_sessions")).
		WithArgs("jti-1", 3, expires, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err := repo.CreateSession(context.Background(), types.AuthSession{ID: "jti-1", AccountID: 3, ExpiresAt: expires})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM auth_sessions")).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "expires_at", "revoked_at", "created_at"}).
			AddRow("jti-1", 3, expires, nil, time.Now()))
	s, err := repo.GetSession(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, s.Active(time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE auth_sessions")).
		WithArgs(sqlmock.AnyArg(), "jti-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RevokeSession(context.Background(), "jti-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
