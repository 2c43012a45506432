package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/types"
)

// RoleRepository defines persistence operations for role grants.
type RoleRepository interface {
	HasRole(ctx context.Context, memberID int, role types.Role) (bool, error)
	List(ctx context.Context, memberID int) ([]types.RoleAssignment, error)
	Assign(ctx context.Context, memberID int, role types.Role) (types.RoleAssignment, error)
	Revoke(ctx context.Context, memberID int, role types.Role) error
}

// RoleService answers role questions and manages grants.
type RoleService struct {
	repo   RoleRepository
	logger *zap.Logger
}

// NewRoleService constructs a RoleService.
func NewRoleService(repo RoleRepository, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{repo: repo, logger: logger}
}

// IsAdmin reports whether memberID holds the admin role. A failed lookup
// reads as false.
func (s *RoleService) IsAdmin(ctx context.Context, memberID int) bool {
	ok, err := s.repo.HasRole(ctx, memberID, types.RoleAdmin)
	if err != nil {
		s.logger.Warn("admin role lookup failed", zap.Int("member_id", memberID), zap.Error(err))
		return false
	}
	return ok
}

// List returns the roles a member holds.
func (s *RoleService) List(ctx context.Context, memberID int) ([]types.RoleAssignment, error) {
	return s.repo.List(ctx, memberID)
}

// Assign grants role to a member. Granting a held role is not an error.
func (s *RoleService) Assign(ctx context.Context, memberID int, role types.Role) (types.RoleAssignment, error) {
	if !role.Valid() {
		return types.RoleAssignment{}, invalid("unknown role %q", role)
	}
	ra, err := s.repo.Assign(ctx, memberID, role)
	if err != nil {
		return types.RoleAssignment{}, err
	}
	s.logger.Info("role assigned", zap.Int("member_id", memberID), zap.String("role", string(role)))
	return ra, nil
}

// Revoke removes a grant. An admin cannot drop their own admin role, so
// the back-office always keeps at least the acting administrator.
func (s *RoleService) Revoke(ctx context.Context, actorID, memberID int, role types.Role) error {
	if !role.Valid() {
		return invalid("unknown role %q", role)
	}
	if role == types.RoleAdmin && actorID == memberID {
		return ErrForbidden
	}
	if err := s.repo.Revoke(ctx, memberID, role); err != nil {
		return err
	}
	s.logger.Info("role revoked", zap.Int("member_id", memberID), zap.String("role", string(role)))
	return nil
}
