package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arklim/account-portal/internal/core/domain"
	"github.com/arklim/account-portal/internal/core/port"
	"github.com/arklim/account-portal/internal/repository"
)

// pgExecutor abstracts pgxpool.Pool so tests can substitute pgxmock.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Unique index names on the accounts table; constraint violations are
// mapped back to field-level errors by name.
const (
	usernameUniqueIndex = "accounts_username_key"
	emailUniqueIndex    = "accounts_email_key"
)

func mapUniqueViolation(pgErr *pgconn.PgError) error {
	switch pgErr.ConstraintName {
	case usernameUniqueIndex:
		return repository.ErrDuplicateUsername
	case emailUniqueIndex:
		return repository.ErrDuplicateEmail
	default:
		return fmt.Errorf("unique constraint violated: %s", pgErr.ConstraintName)
	}
}

// AccountRepository provides PostgreSQL-backed account persistence.
type AccountRepository struct {
	db      pgExecutor
	builder sq.StatementBuilderType
}

var _ port.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates an account repository over the given executor.
func NewAccountRepository(db pgExecutor) *AccountRepository {
	return &AccountRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const accountColumns = "id, username, email, first_name, last_name, password_hash, password_algo, registered_at, last_login, last_password_change"

// Create inserts a new account row. A concurrent registration that loses the
// race surfaces as ErrDuplicateUsername or ErrDuplicateEmail depending on
// which index fired.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query, args, err := r.builder.
		Insert("accounts").
		Columns("id", "username", "email", "first_name", "last_name",
			"password_hash", "password_algo", "registered_at", "last_password_change").
		Values(account.ID, account.Username, account.Email, account.FirstName, account.LastName,
			account.PasswordHash, account.PasswordAlgo, account.RegisteredAt, account.LastPasswordChange).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return mapUniqueViolation(pgErr)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by primary key.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query, args, err := r.builder.
		Select(accountColumns).
		From("accounts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account query: %w", err)
	}

	return r.scanAccount(r.db.QueryRow(ctx, query, args...))
}

// GetByUsername fetches an account by its unique username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query, args, err := r.builder.
		Select(accountColumns).
		From("accounts").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account query: %w", err)
	}

	return r.scanAccount(r.db.QueryRow(ctx, query, args...))
}

// UsernameTaken reports whether an account already holds the given username.
func (r *AccountRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	query, args, err := r.builder.
		Select("1").
		From("accounts").
		Where(sq.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build username exists query: %w", err)
	}

	var one int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return true, nil
}

// EmailTaken reports whether another account uses the normalized email.
// excludeID, when non-empty, exempts that account so a profile edit can keep
// its own address.
func (r *AccountRepository) EmailTaken(ctx context.Context, email string, excludeID string) (bool, error) {
	builder := r.builder.
		Select("1").
		From("accounts").
		Where(sq.Eq{"email": email})

	if excludeID != "" {
		builder = builder.Where(sq.NotEq{"id": excludeID})
	}

	query, args, err := builder.Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build email exists query: %w", err)
	}

	var one int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return true, nil
}

// UpdateProfile rewrites the mutable profile fields of an account.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, email, firstName, lastName string) error {
	query, args, err := r.builder.
		Update("accounts").
		Set("email", email).
		Set("first_name", firstName).
		Set("last_name", lastName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return mapUniqueViolation(pgErr)
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored credential for an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, passwordAlgo string, changedAt time.Time) error {
	query, args, err := r.builder.
		Update("accounts").
		Set("password_hash", passwordHash).
		Set("password_algo", passwordAlgo).
		Set("last_password_change", changedAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RecordLogin stamps the account's last successful login time.
func (r *AccountRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	query, args, err := r.builder.
		Update("accounts").
		Set("last_login", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// Delete removes the account row permanently.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.builder.
		Delete("accounts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete account query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.FirstName,
		&account.LastName,
		&account.PasswordHash,
		&account.PasswordAlgo,
		&account.RegisteredAt,
		&account.LastLogin,
		&account.LastPasswordChange,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}
