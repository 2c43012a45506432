package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/samajportal/apiserver/internal/sanitize"
	"github.com/samajportal/apiserver/internal/store"
	"github.com/samajportal/apiserver/types"
)

const minPasswordLength = 8

// AccountRepository defines persistence operations for accounts and
// their issued sessions.
type AccountRepository interface {
	GetByMobile(ctx context.Context, mobile string) (types.Account, error)
	CreateWithProfile(ctx context.Context, account types.Account, fullName string) (types.Account, types.Profile, error)
	CreateSession(ctx context.Context, s types.AuthSession) (types.AuthSession, error)
	GetSession(ctx context.Context, id string) (types.AuthSession, error)
	RevokeSession(ctx context.Context, id string) error
	RevokeAllSessions(ctx context.Context, accountID int) error
}

// Registration is the sign-up payload.
type Registration struct {
	FullName string `json:"full_name"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserService handles sign-up, sign-in and server-side sessions.
type UserService struct {
	repo     AccountRepository
	tokenTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService constructs a UserService whose sessions last tokenTTL.
func NewUserService(repo AccountRepository, tokenTTL time.Duration, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, tokenTTL: tokenTTL, logger: logger, now: time.Now}
}

// Register creates an account together with a profile in state none.
func (s *UserService) Register(ctx context.Context, reg Registration) (types.Account, types.Profile, error) {
	reg.FullName = sanitize.Text(reg.FullName)
	reg.Mobile = strings.TrimSpace(reg.Mobile)
	reg.Email = strings.TrimSpace(reg.Email)

	var missing []string
	if reg.FullName == "" {
		missing = append(missing, "full_name")
	}
	if reg.Mobile == "" {
		missing = append(missing, "mobile")
	}
	if reg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return types.Account{}, types.Profile{}, invalid("missing %s", strings.Join(missing, ", "))
	}
	if len(reg.Password) < minPasswordLength {
		return types.Account{}, types.Profile{}, invalid("password must be at least %d characters", minPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, types.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	account, profile, err := s.repo.CreateWithProfile(ctx, types.Account{
		Mobile:       reg.Mobile,
		Email:        reg.Email,
		PasswordHash: string(hashed),
	}, reg.FullName)
	if err != nil {
		return types.Account{}, types.Profile{}, err
	}
	s.logger.Info("member registered", zap.Int("member_id", account.ID))
	return account, profile, nil
}

// Authenticate checks a mobile number and password.
func (s *UserService) Authenticate(ctx context.Context, mobile, password string) (types.Account, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" || password == "" {
		return types.Account{}, ErrInvalidCredentials
	}

	account, err := s.repo.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrInvalidCredentials
		}
		return types.Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return types.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// StartSession records a new session whose ID becomes the token jti.
func (s *UserService) StartSession(ctx context.Context, accountID int) (types.AuthSession, error) {
	return s.repo.CreateSession(ctx, types.AuthSession{
		ID:        uuid.NewString(),
		AccountID: accountID,
		ExpiresAt: s.now().Add(s.tokenTTL),
	})
}

// ValidateSession confirms the session exists, belongs to accountID and
// is neither revoked nor expired.
func (s *UserService) ValidateSession(ctx context.Context, id string, accountID int) (types.AuthSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.AuthSession{}, ErrSessionInvalid
	}
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.AuthSession{}, ErrSessionInvalid
		}
		return types.AuthSession{}, err
	}
	if sess.AccountID != accountID || !sess.Active(s.now()) {
		return types.AuthSession{}, ErrSessionInvalid
	}
	return sess, nil
}

// RotateSession starts a replacement session and revokes the old one.
func (s *UserService) RotateSession(ctx context.Context, oldID string, accountID int) (types.AuthSession, error) {
	if _, err := s.ValidateSession(ctx, oldID, accountID); err != nil {
		return types.AuthSession{}, err
	}
	next, err := s.StartSession(ctx, accountID)
	if err != nil {
		return types.AuthSession{}, err
	}
	if err := s.repo.RevokeSession(ctx, oldID); err != nil {
		s.logger.Warn("revoke rotated session", zap.String("session_id", oldID), zap.Error(err))
	}
	return next, nil
}

// EndSession revokes a session. Revoking an already revoked session is
// not an error.
func (s *UserService) EndSession(ctx context.Context, id string) error {
	err := s.repo.RevokeSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// EndAllSessions revokes every session of accountID.
func (s *UserService) EndAllSessions(ctx context.Context, accountID int) error {
	return s.repo.RevokeAllSessions(ctx, accountID)
}
