package forms

import (
	"net/mail"
	"regexp"
	"strings"
)

const (
	maxUsernameLength = 150
	minUsernameLength = 3
	maxNameLength     = 30
	maxEmailLength    = 254
)

// usernameRe accepts letters, digits and @/./+/-/_ so existing account names
// imported from other systems keep working.
var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// Errors maps field names to a single human-readable validation message.
type Errors map[string]string

// Has reports whether the field carries an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// RegisterForm holds the account creation fields.
type RegisterForm struct {
	Username        string `form:"username"`
	Email           string `form:"email"`
	FirstName       string `form:"first_name"`
	LastName        string `form:"last_name"`
	Password        string `form:"password"`
	PasswordConfirm string `form:"password_confirm"`
}

// Normalize trims surrounding whitespace on non-secret fields.
func (f *RegisterForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
}

// Validate checks field formats and returns per-field messages.
func (f *RegisterForm) Validate() Errors {
	errs := Errors{}

	validateUsername(errs, f.Username)
	validateEmail(errs, f.Email)
	validateName(errs, "first_name", f.FirstName)
	validateName(errs, "last_name", f.LastName)

	if f.Password == "" {
		errs["password"] = "Password is required."
	}
	if f.PasswordConfirm == "" {
		errs["password_confirm"] = "Please confirm your password."
	} else if f.Password != "" && f.Password != f.PasswordConfirm {
		errs["password_confirm"] = "The two password fields do not match."
	}

	return errs
}

// LoginForm holds the credential fields.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// Normalize trims the username; the password is taken verbatim.
func (f *LoginForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

// Validate checks both credential fields are present.
func (f *LoginForm) Validate() Errors {
	errs := Errors{}
	if f.Username == "" {
		errs["username"] = "Username is required."
	}
	if f.Password == "" {
		errs["password"] = "Password is required."
	}
	return errs
}

// EditProfileForm holds the mutable profile fields.
type EditProfileForm struct {
	Email     string `form:"email"`
	FirstName string `form:"first_name"`
	LastName  string `form:"last_name"`
}

// Normalize trims surrounding whitespace on all fields.
func (f *EditProfileForm) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
}

// Validate checks field formats and returns per-field messages.
func (f *EditProfileForm) Validate() Errors {
	errs := Errors{}
	validateEmail(errs, f.Email)
	validateName(errs, "first_name", f.FirstName)
	validateName(errs, "last_name", f.LastName)
	return errs
}

// PasswordChangeForm holds the password rotation fields.
type PasswordChangeForm struct {
	CurrentPassword    string `form:"current_password"`
	NewPassword        string `form:"new_password"`
	NewPasswordConfirm string `form:"new_password_confirm"`
}

// Validate checks presence and that the new passwords match.
func (f *PasswordChangeForm) Validate() Errors {
	errs := Errors{}
	if f.CurrentPassword == "" {
		errs["current_password"] = "Current password is required."
	}
	if f.NewPassword == "" {
		errs["new_password"] = "New password is required."
	}
	if f.NewPasswordConfirm == "" {
		errs["new_password_confirm"] = "Please confirm the new password."
	} else if f.NewPassword != "" && f.NewPassword != f.NewPasswordConfirm {
		errs["new_password_confirm"] = "The two password fields do not match."
	}
	return errs
}

func validateUsername(errs Errors, username string) {
	switch {
	case username == "":
		errs["username"] = "Username is required."
	case len(username) < minUsernameLength:
		errs["username"] = "Username must be at least 3 characters long."
	case len(username) > maxUsernameLength:
		errs["username"] = "Username is too long."
	case !usernameRe.MatchString(username):
		errs["username"] = "Username may only contain letters, digits and @/./+/-/_ characters."
	}
}

func validateEmail(errs Errors, email string) {
	switch {
	case email == "":
		errs["email"] = "Email is required."
	case len(email) > maxEmailLength:
		errs["email"] = "Email is too long."
	default:
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			errs["email"] = "Enter a valid email address."
		}
	}
}

func validateName(errs Errors, field, value string) {
	if len(value) > maxNameLength {
		errs[field] = "This field is too long."
	}
}
