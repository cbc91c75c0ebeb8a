package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/core/domain"
	"github.com/arklim/account-portal/internal/core/port"
	"github.com/arklim/account-portal/internal/repository"
)

// ErrAccountNotFound indicates the account no longer exists.
var ErrAccountNotFound = errors.New("account not found")

// ProfileUpdateInput carries the editable profile fields.
type ProfileUpdateInput struct {
	Email     string
	FirstName string
	LastName  string
}

// ProfileService reads and mutates account profiles.
type ProfileService struct {
	accounts port.AccountRepository
	logger   *zap.Logger
}

// NewProfileService wires the profile use case.
func NewProfileService(accounts port.AccountRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{accounts: accounts, logger: logger}
}

// Get loads the account backing a profile page.
func (s *ProfileService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

// Update rewrites the profile fields. The email is normalized and checked for
// uniqueness against every account except the owner, so resubmitting an
// unchanged address succeeds.
func (s *ProfileService) Update(ctx context.Context, accountID string, input ProfileUpdateInput) (*domain.Account, error) {
	email := domain.NormalizeEmail(input.Email)

	taken, err := s.accounts.EmailTaken(ctx, email, accountID)
	if err != nil {
		return nil, fmt.Errorf("check email availability: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	if err := s.accounts.UpdateProfile(ctx, accountID, email, input.FirstName, input.LastName); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAccountNotFound
		default:
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("reload account: %w", err)
	}

	s.logger.Info("profile updated", zap.String("account_id", accountID))
	return account, nil
}

// Delete permanently removes the account.
func (s *ProfileService) Delete(ctx context.Context, accountID string) error {
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.logger.Info("account deleted", zap.String("account_id", accountID))
	return nil
}
