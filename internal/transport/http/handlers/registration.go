package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/transport/http/forms"
	"github.com/arklim/account-portal/internal/transport/http/session"
	"github.com/arklim/account-portal/internal/usecase"
)

// RegistrationHandler serves the account creation pages.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
	logger       *zap.Logger
}

// NewRegistrationHandler creates the registration handler.
func NewRegistrationHandler(registration *usecase.RegistrationService, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, logger: logger}
}

// ShowForm renders an empty registration form.
func (h *RegistrationHandler) ShowForm(c *gin.Context) {
	render(c, http.StatusOK, "register.tmpl", gin.H{
		"Title":       "Create account",
		"Form":        forms.RegisterForm{},
		"FieldErrors": forms.Errors{},
	})
}

// Submit validates the form and creates the account. Validation failures
// re-render the form with field errors and the submitted values, except the
// passwords which are never echoed back.
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var form forms.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		h.rerender(c, form, forms.Errors{"form": "Invalid form submission."})
		return
	}

	form.Normalize()
	if errs := form.Validate(); len(errs) > 0 {
		h.rerender(c, form, errs)
		return
	}

	_, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  form.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUsernameTaken):
			h.rerender(c, form, forms.Errors{"username": "This username is already taken."})
		case errors.Is(err, usecase.ErrEmailTaken):
			h.rerender(c, form, forms.Errors{"email": "This email is already registered."})
		case errors.Is(err, usecase.ErrPasswordPolicyViolation):
			h.rerender(c, form, forms.Errors{"password": policyMessage(err)})
		default:
			h.logger.Error("registration failed", zap.Error(err))
			h.rerender(c, form, forms.Errors{"form": "Something went wrong. Please try again."})
		}
		return
	}

	if err := session.AddFlash(c, session.FlashSuccess, "Your account has been created. Please sign in."); err != nil {
		h.logger.Warn("failed to queue flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/login/")
}

func (h *RegistrationHandler) rerender(c *gin.Context, form forms.RegisterForm, errs forms.Errors) {
	form.Password = ""
	form.PasswordConfirm = ""
	render(c, http.StatusOK, "register.tmpl", gin.H{
		"Title":       "Create account",
		"Form":        form,
		"FieldErrors": errs,
		"FormError":   errs["form"],
	})
}
