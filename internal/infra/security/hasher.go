package security

import "github.com/arklim/account-portal/internal/core/port"

// Argon2Hasher adapts the package-level Argon2id helpers to the hasher port.
type Argon2Hasher struct{}

var _ port.PasswordHasher = Argon2Hasher{}

// NewArgon2Hasher returns a hasher using the active Argon2 configuration.
func NewArgon2Hasher() Argon2Hasher {
	return Argon2Hasher{}
}

// Hash produces an encoded Argon2id hash for the password.
func (Argon2Hasher) Hash(password string) (string, error) {
	return HashPassword(password)
}

// Verify checks the password against the stored encoded hash.
func (Argon2Hasher) Verify(password, encoded string) (bool, error) {
	return VerifyPassword(password, encoded)
}

// Algorithm names the hashing scheme for persistence.
func (Argon2Hasher) Algorithm() string {
	return PasswordAlgo
}
