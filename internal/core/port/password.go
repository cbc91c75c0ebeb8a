package port

import "github.com/arklim/account-portal/internal/core/domain"

// PasswordPolicy validates candidate passwords against the portal policy.
type PasswordPolicy interface {
	Validate(password string, ctx domain.PasswordContext) error
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	Algorithm() string
}
