package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samajportal/apiserver/types"
)

// AccountRepository handles persistence for login accounts and the
// tokens issued to them.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, mobile, email, password_hash, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (types.Account, error) {
	var account types.Account
	err := row.Scan(
		&account.ID,
		&account.Mobile,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

// GetByMobile looks an account up by its sign-in mobile number.
func (r *AccountRepository) GetByMobile(ctx context.Context, mobile string) (types.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE mobile = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, mobile))
}

// CreateWithProfile inserts an account and its profile in one transaction.
// The profile starts in the "none" verification state.
func (r *AccountRepository) CreateWithProfile(ctx context.Context, account types.Account, fullName string) (types.Account, types.Profile, error) {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Account{}, types.Profile{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertAccount = `
		INSERT INTO accounts (mobile, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertAccount,
		account.Mobile,
		account.Email,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID); err != nil {
		return types.Account{}, types.Profile{}, mapWriteError(err)
	}

	profile := types.Profile{
		ID:                 account.ID,
		FullName:           fullName,
		Mobile:             account.Mobile,
		Email:              account.Email,
		VerificationStatus: types.VerificationNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	const insertProfile = `
		INSERT INTO profiles (id, full_name, mobile, email, verification_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(
		ctx,
		insertProfile,
		profile.ID,
		profile.FullName,
		profile.Mobile,
		profile.Email,
		profile.VerificationStatus,
		profile.CreatedAt,
		profile.UpdatedAt,
	); err != nil {
		return types.Account{}, types.Profile{}, fmt.Errorf("insert profile: %w", mapWriteError(err))
	}

	if err := tx.Commit(); err != nil {
		return types.Account{}, types.Profile{}, err
	}
	return account, profile, nil
}

// CreateSession records an issued token.
func (r *AccountRepository) CreateSession(ctx context.Context, s types.AuthSession) (types.AuthSession, error) {
	s.CreatedAt = time.Now()
	const query = `
		INSERT INTO auth_sessions (id, account_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.AccountID, s.ExpiresAt, s.CreatedAt); err != nil {
		return types.AuthSession{}, mapWriteError(err)
	}
	return s, nil
}

func (r *AccountRepository) GetSession(ctx context.Context, id string) (types.AuthSession, error) {
	const query = `
		SELECT id, account_id, expires_at, revoked_at, created_at
		FROM auth_sessions
		WHERE id = $1`
	var s types.AuthSession
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.AccountID, &s.ExpiresAt, &revokedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.AuthSession{}, ErrNotFound
		}
		return types.AuthSession{}, err
	}
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	return s, nil
}

// RevokeSession marks a token as no longer valid. Revoking an already
// revoked token is not an error.
func (r *AccountRepository) RevokeSession(ctx context.Context, id string) error {
	const query = `
		UPDATE auth_sessions
		SET revoked_at = COALESCE(revoked_at, $1)
		WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	return rowsAffected(result.RowsAffected())
}

// RevokeAllSessions revokes every active token of an account.
func (r *AccountRepository) RevokeAllSessions(ctx context.Context, accountID int) error {
	const query = `
		UPDATE auth_sessions
		SET revoked_at = $1
		WHERE account_id = $2 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now(), accountID)
	return err
}
