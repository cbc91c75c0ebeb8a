package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/core/domain"
	"github.com/arklim/account-portal/internal/core/port"
	"github.com/arklim/account-portal/internal/repository"
)

var (
	// ErrUsernameTaken indicates the requested username is already registered.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrEmailTaken indicates the requested email is already registered.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrPasswordPolicyViolation wraps the specific policy rule that failed.
	ErrPasswordPolicyViolation = errors.New("password does not meet policy requirements")
)

// RegisterInput carries validated form fields for account creation.
type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// RegistrationService creates new accounts.
type RegistrationService struct {
	accounts port.AccountRepository
	policy   port.PasswordPolicy
	hasher   port.PasswordHasher
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistrationService wires the registration use case.
func NewRegistrationService(accounts port.AccountRepository, policy port.PasswordPolicy, hasher port.PasswordHasher, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{
		accounts: accounts,
		policy:   policy,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}
}

// Register validates uniqueness and password policy, then persists the new
// account. Uniqueness is checked up front for friendly errors, but the unique
// indexes remain authoritative: a lost race on insert maps to the same
// field-level errors.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	email := domain.NormalizeEmail(input.Email)

	taken, err := s.accounts.UsernameTaken(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("check username availability: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.accounts.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("check email availability: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	passwordCtx := domain.PasswordContext{Username: input.Username, Email: email}
	if err := s.policy.Validate(input.Password, passwordCtx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPasswordPolicyViolation, err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:                 uuid.NewString(),
		Username:           input.Username,
		Email:              email,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		PasswordHash:       hash,
		PasswordAlgo:       s.hasher.Algorithm(),
		RegisteredAt:       now,
		LastPasswordChange: now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		default:
			return nil, fmt.Errorf("create account: %w", err)
		}
	}

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("username", account.Username),
	)

	return &account, nil
}
