package forms

import (
	"strings"
	"testing"
)

func TestRegisterFormValid(t *testing.T) {
	form := RegisterForm{
		Username:        "ana.lopez",
		Email:           "ana@example.com",
		FirstName:       "Ana",
		LastName:        "Lopez",
		Password:        "Str0ng!pw",
		PasswordConfirm: "Str0ng!pw",
	}
	form.Normalize()

	if errs := form.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestRegisterFormFieldErrors(t *testing.T) {
	cases := []struct {
		name  string
		form  RegisterForm
		field string
	}{
		{
			name:  "missing username",
			form:  RegisterForm{Email: "a@b.com", Password: "x", PasswordConfirm: "x"},
			field: "username",
		},
		{
			name:  "username too short",
			form:  RegisterForm{Username: "ab", Email: "a@b.com", Password: "x", PasswordConfirm: "x"},
			field: "username",
		},
		{
			name:  "username bad characters",
			form:  RegisterForm{Username: "ana lopez", Email: "a@b.com", Password: "x", PasswordConfirm: "x"},
			field: "username",
		},
		{
			name:  "invalid email",
			form:  RegisterForm{Username: "ana", Email: "not-an-email", Password: "x", PasswordConfirm: "x"},
			field: "email",
		},
		{
			name:  "password mismatch",
			form:  RegisterForm{Username: "ana", Email: "a@b.com", Password: "one", PasswordConfirm: "two"},
			field: "password_confirm",
		},
		{
			name:  "missing confirmation",
			form:  RegisterForm{Username: "ana", Email: "a@b.com", Password: "one"},
			field: "password_confirm",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.form.Normalize()
			errs := tc.form.Validate()
			if !errs.Has(tc.field) {
				t.Fatalf("expected error on %q, got %v", tc.field, errs)
			}
		})
	}
}

func TestNameLengthBounds(t *testing.T) {
	form := RegisterForm{
		Username:        "ana",
		Email:           "ana@example.com",
		FirstName:       strings.Repeat("a", 30),
		LastName:        strings.Repeat("b", 30),
		Password:        "x",
		PasswordConfirm: "x",
	}
	if errs := form.Validate(); len(errs) != 0 {
		t.Fatalf("expected 30-character names to pass, got %v", errs)
	}

	form.FirstName = strings.Repeat("a", 31)
	form.LastName = strings.Repeat("b", 31)
	errs := form.Validate()
	if !errs.Has("first_name") || !errs.Has("last_name") {
		t.Fatalf("expected errors on 31-character names, got %v", errs)
	}

	edit := EditProfileForm{Email: "ana@example.com", FirstName: strings.Repeat("c", 31)}
	if errs := edit.Validate(); !errs.Has("first_name") {
		t.Fatalf("expected first_name error, got %v", errs)
	}
}

func TestRegisterFormTrimsWhitespace(t *testing.T) {
	form := RegisterForm{
		Username:        "  ana  ",
		Email:           " ana@example.com ",
		Password:        "Str0ng!pw",
		PasswordConfirm: "Str0ng!pw",
	}
	form.Normalize()

	if form.Username != "ana" {
		t.Fatalf("username not trimmed: %q", form.Username)
	}
	if form.Email != "ana@example.com" {
		t.Fatalf("email not trimmed: %q", form.Email)
	}
	if errs := form.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors after trim, got %v", errs)
	}
}

func TestLoginFormValidation(t *testing.T) {
	form := LoginForm{}
	form.Normalize()
	errs := form.Validate()
	if !errs.Has("username") || !errs.Has("password") {
		t.Fatalf("expected errors on both fields, got %v", errs)
	}

	form = LoginForm{Username: "ana", Password: "pw"}
	form.Normalize()
	if errs := form.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestEditProfileFormValidation(t *testing.T) {
	form := EditProfileForm{Email: "bad"}
	form.Normalize()
	if errs := form.Validate(); !errs.Has("email") {
		t.Fatalf("expected email error, got %v", errs)
	}

	form = EditProfileForm{Email: "ana@example.com", FirstName: "Ana"}
	form.Normalize()
	if errs := form.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestPasswordChangeFormValidation(t *testing.T) {
	form := PasswordChangeForm{
		CurrentPassword:    "old",
		NewPassword:        "new-one",
		NewPasswordConfirm: "new-two",
	}
	if errs := form.Validate(); !errs.Has("new_password_confirm") {
		t.Fatalf("expected confirmation mismatch error, got %v", errs)
	}

	form.NewPasswordConfirm = "new-one"
	if errs := form.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}
