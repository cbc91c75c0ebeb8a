package port

import (
	"context"
	"time"

	"github.com/arklim/account-portal/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	// EmailTaken reports whether another account already uses the supplied
	// normalized email. excludeID, when non-empty, exempts that account from
	// the check so a user can resubmit their own unchanged address.
	EmailTaken(ctx context.Context, email string, excludeID string) (bool, error)
	UpdateProfile(ctx context.Context, id string, email, firstName, lastName string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
