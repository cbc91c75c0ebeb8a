package security

import (
	"fmt"

	"github.com/arklim/account-portal/internal/core/domain"
	"github.com/arklim/account-portal/internal/core/port"
)

var _ port.PasswordPolicy = (*PasswordPolicy)(nil)

const (
	defaultMinPasswordLength   = 8
	defaultMinCharacterClasses = 2
	defaultMinZxcvbnScore      = 1
)

// DefaultPasswordValidator returns the built-in validator enforcing the portal
// password policy with length, character class, and zxcvbn strength checks.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		RequireCharacterClassesRule(defaultMinCharacterClasses),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore),
	)
}

// NewPasswordValidatorWithContext allows callers to include additional user inputs (e.g. email) for strength checking.
func NewPasswordValidatorWithContext(userInputs ...string) *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		RequireCharacterClassesRule(defaultMinCharacterClasses),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore, userInputs...),
	)
}

// PasswordPolicy adapts the password validator to the domain-level policy interface.
type PasswordPolicy struct {
	factory func(inputs []string) *PasswordValidator
}

// NewPasswordPolicy builds a policy that accounts for contextual user inputs when validating passwords.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		factory: func(inputs []string) *PasswordValidator {
			return NewPasswordValidatorWithContext(inputs...)
		},
	}
}

// Validate applies the configured validator to ensure the password meets policy requirements.
func (p *PasswordPolicy) Validate(password string, ctx domain.PasswordContext) error {
	if p == nil || p.factory == nil {
		return fmt.Errorf("password policy not configured")
	}

	inputs := make([]string, 0, 2)
	if ctx.Username != "" {
		inputs = append(inputs, ctx.Username)
	}
	if ctx.Email != "" {
		inputs = append(inputs, ctx.Email)
	}

	validator := p.factory(inputs)
	if validator == nil {
		return fmt.Errorf("password validator not configured")
	}

	return validator.Validate(password)
}
