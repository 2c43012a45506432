package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/samajportal/apiserver/types"
)

// RoleRepository handles persistence for role assignments. Each
// (member, role) pair is one row.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) HasRole(ctx context.Context, memberID int, role types.Role) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_roles WHERE member_id = $1 AND role = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, memberID, role).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *RoleRepository) List(ctx context.Context, memberID int) ([]types.RoleAssignment, error) {
	const query = `
		SELECT member_id, role, created_at
		FROM user_roles
		WHERE member_id = $1
		ORDER BY role`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []types.RoleAssignment
	for rows.Next() {
		var ra types.RoleAssignment
		if err := rows.Scan(&ra.MemberID, &ra.Role, &ra.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, ra)
	}
	return roles, rows.Err()
}

// Assign grants role to memberID. Granting a held role is a no-op.
func (r *RoleRepository) Assign(ctx context.Context, memberID int, role types.Role) (types.RoleAssignment, error) {
	ra := types.RoleAssignment{MemberID: memberID, Role: role, CreatedAt: time.Now()}
	const query = `
		INSERT INTO user_roles (member_id, role, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id, role) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, ra.MemberID, ra.Role, ra.CreatedAt); err != nil {
		return types.RoleAssignment{}, err
	}
	return ra, nil
}

// Revoke returns ErrNotFound when the member did not hold role.
func (r *RoleRepository) Revoke(ctx context.Context, memberID int, role types.Role) error {
	const query = `DELETE FROM user_roles WHERE member_id = $1 AND role = $2`
	result, err := r.db.ExecContext(ctx, query, memberID, role)
	if err != nil {
		return err
	}
	return rowsAffected(result.RowsAffected())
}
