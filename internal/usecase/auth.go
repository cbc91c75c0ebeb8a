package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/core/domain"
	"github.com/arklim/account-portal/internal/core/port"
	"github.com/arklim/account-portal/internal/infra/security"
	"github.com/arklim/account-portal/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for unknown usernames and wrong
	// passwords alike, so responses do not reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrCurrentPasswordInvalid indicates the current password check failed
	// during a password change.
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")

	// ErrSamePassword indicates the new password matches the current one.
	ErrSamePassword = errors.New("new password must differ from the current password")
)

// AuthService handles credential verification and password changes.
type AuthService struct {
	accounts port.AccountRepository
	policy   port.PasswordPolicy
	hasher   port.PasswordHasher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService wires the authentication use case.
func NewAuthService(accounts port.AccountRepository, policy port.PasswordPolicy, hasher port.PasswordHasher, logger *zap.Logger) *AuthService {
	return &AuthService{
		accounts: accounts,
		policy:   policy,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate verifies a username/password pair and stamps last_login on
// success.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("login rejected for unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account by username: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("login rejected for bad password",
			zap.String("account_id", account.ID),
		)
		return nil, ErrInvalidCredentials
	}

	loginAt := s.now().UTC()
	if err := s.accounts.RecordLogin(ctx, account.ID, loginAt); err != nil {
		// A failed timestamp write should not block the login itself.
		s.logger.Warn("failed to record login time",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	} else {
		account.LastLogin = &loginAt
	}

	s.logger.Info("login succeeded", zap.String("account_id", account.ID))
	return account, nil
}

// ChangePassword verifies the current credential and stores a new one. The
// new password must satisfy the policy and differ from the current one.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}

	ok, err := s.hasher.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return ErrCurrentPasswordInvalid
	}

	if err := security.RequireDifferentFrom(currentPassword).Validate(newPassword); err != nil {
		return ErrSamePassword
	}

	passwordCtx := domain.PasswordContext{Username: account.Username, Email: account.Email}
	if err := s.policy.Validate(newPassword, passwordCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrPasswordPolicyViolation, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	changedAt := s.now().UTC()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, s.hasher.Algorithm(), changedAt); err != nil {
		return fmt.Errorf("store new password: %w", err)
	}

	s.logger.Info("password changed", zap.String("account_id", account.ID))
	return nil
}
