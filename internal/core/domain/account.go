package domain

import (
	"strings"
	"time"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                 string
	Username           string
	Email              string
	FirstName          string
	LastName           string
	PasswordHash       string
	PasswordAlgo       string
	RegisteredAt       time.Time
	LastLogin          *time.Time
	LastPasswordChange time.Time
}

// FullName joins the optional name fields for display.
func (a Account) FullName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Username
	}
	return name
}

// NormalizeEmail lowercases and trims an email address so uniqueness
// comparisons are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordContext carries user-specific inputs that a password must not
// resemble (fed to the strength estimator).
type PasswordContext struct {
	Username string
	Email    string
}
