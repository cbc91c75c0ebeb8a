package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/core/domain"
	"github.com/arklim/account-portal/internal/repository"
)

// fakeAccountRepo is an in-memory stand-in for the PostgreSQL repository.
type fakeAccountRepo struct {
	accounts map[string]domain.Account

	createErr error
	failAll   error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]domain.Account)}
}

func (f *fakeAccountRepo) Create(_ context.Context, account domain.Account) error {
	if f.failAll != nil {
		return f.failAll
	}
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.accounts {
		if existing.Username == account.Username {
			return repository.ErrDuplicateUsername
		}
		if existing.Email == account.Email {
			return repository.ErrDuplicateEmail
		}
	}
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	account, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (f *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, account := range f.accounts {
		if account.Username == username {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepo) UsernameTaken(_ context.Context, username string) (bool, error) {
	if f.failAll != nil {
		return false, f.failAll
	}
	for _, account := range f.accounts {
		if account.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountRepo) EmailTaken(_ context.Context, email string, excludeID string) (bool, error) {
	if f.failAll != nil {
		return false, f.failAll
	}
	for id, account := range f.accounts {
		if id == excludeID {
			continue
		}
		if account.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountRepo) UpdateProfile(_ context.Context, id string, email, firstName, lastName string) error {
	if f.failAll != nil {
		return f.failAll
	}
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.Email = email
	account.FirstName = firstName
	account.LastName = lastName
	f.accounts[id] = account
	return nil
}

func (f *fakeAccountRepo) UpdatePassword(_ context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error {
	if f.failAll != nil {
		return f.failAll
	}
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.PasswordAlgo = passwordAlgo
	account.LastPasswordChange = changedAt
	f.accounts[id] = account
	return nil
}

func (f *fakeAccountRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	if f.failAll != nil {
		return f.failAll
	}
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.LastLogin = &at
	f.accounts[id] = account
	return nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, id string) error {
	if f.failAll != nil {
		return f.failAll
	}
	if _, ok := f.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

// stubPolicy accepts everything unless err is set.
type stubPolicy struct {
	err error
}

func (p stubPolicy) Validate(string, domain.PasswordContext) error {
	return p.err
}

// stubHasher produces deterministic reversible hashes for assertions.
type stubHasher struct {
	hashErr error
}

func (h stubHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h stubHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

func (h stubHasher) Algorithm() string {
	return "stub"
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func seedAccount(repo *fakeAccountRepo, username, email, password string) domain.Account {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	account := domain.Account{
		ID:                 fmt.Sprintf("id-%s", strings.ToLower(username)),
		Username:           username,
		Email:              email,
		PasswordHash:       "hashed:" + password,
		PasswordAlgo:       "stub",
		RegisteredAt:       now,
		LastPasswordChange: now,
	}
	repo.accounts[account.ID] = account
	return account
}
