package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-portal/internal/transport/http/forms"
	"github.com/arklim/account-portal/internal/transport/http/middleware"
	"github.com/arklim/account-portal/internal/transport/http/session"
	"github.com/arklim/account-portal/internal/usecase"
)

// ProfileHandler serves the authenticated profile pages.
type ProfileHandler struct {
	profile *usecase.ProfileService
	auth    *usecase.AuthService
	logger  *zap.Logger
}

// NewProfileHandler creates the profile handler.
func NewProfileHandler(profile *usecase.ProfileService, auth *usecase.AuthService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profile: profile, auth: auth, logger: logger}
}

// Show renders the profile page for the signed-in account.
func (h *ProfileHandler) Show(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login/")
		return
	}

	render(c, http.StatusOK, "profile.tmpl", gin.H{
		"Title":   "Your profile",
		"Account": account,
	})
}

// ShowEditForm renders the edit form prefilled with current values.
func (h *ProfileHandler) ShowEditForm(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login/")
		return
	}

	render(c, http.StatusOK, "edit_profile.tmpl", gin.H{
		"Title": "Edit profile",
		"Form": forms.EditProfileForm{
			Email:     account.Email,
			FirstName: account.FirstName,
			LastName:  account.LastName,
		},
		"FieldErrors": forms.Errors{},
	})
}

// SubmitEdit validates and stores the updated profile fields.
func (h *ProfileHandler) SubmitEdit(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login/")
		return
	}

	var form forms.EditProfileForm
	if err := c.ShouldBind(&form); err != nil {
		h.rerenderEdit(c, form, forms.Errors{"form": "Invalid form submission."})
		return
	}

	form.Normalize()
	if errs := form.Validate(); len(errs) > 0 {
		h.rerenderEdit(c, form, errs)
		return
	}

	_, err := h.profile.Update(c.Request.Context(), account.ID, usecase.ProfileUpdateInput{
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrEmailTaken):
			h.rerenderEdit(c, form, forms.Errors{"email": "This email is already registered."})
		case errors.Is(err, usecase.ErrAccountNotFound):
			_ = session.SignOut(c)
			c.Redirect(http.StatusFound, "/login/")
		default:
			h.logger.Error("profile update failed", zap.Error(err))
			h.rerenderEdit(c, form, forms.Errors{"form": "Something went wrong. Please try again."})
		}
		return
	}

	if err := session.AddFlash(c, session.FlashSuccess, "Your profile has been updated."); err != nil {
		h.logger.Warn("failed to queue flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/profile/")
}

// ShowDeleteConfirm renders the account deletion confirmation page.
func (h *ProfileHandler) ShowDeleteConfirm(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login/")
		return
	}

	render(c, http.StatusOK, "delete_profile.tmpl", gin.H{
		"Title":   "Delete account",
		"Account": account,
	})
}

// SubmitDelete permanently removes the account and ends the session.
func (h *ProfileHandler) SubmitDelete(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login/")
		return
	}

	if err := h.profile.Delete(c.Request.Context(), account.ID); err != nil {
		if !errors.Is(err, usecase.ErrAccountNotFound) {
			h.logger.Error("account deletion failed", zap.Error(err))
			render(c, http.StatusInternalServerError, "delete_profile.tmpl", gin.H{
				"Title":     "Delete account",
				"Account":   account,
				"FormError": "Something went wrong. Please try again.",
			})
			return
		}
	}

	if err := session.SignOut(c); err != nil {
		h.logger.Warn("failed to clear session", zap.Error(err))
	}
	if err := session.AddFlash(c, session.FlashWarning, "Your account has been deleted."); err != nil {
		h.logger.Warn("failed to queue flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

// ShowPasswordForm renders the password change form.
func (h *ProfileHandler) ShowPasswordForm(c *gin.Context) {
	render(c, http.StatusOK, "change_password.tmpl", gin.H{
		"Title":       "Change password",
		"FieldErrors": forms.Errors{},
	})
}

// SubmitPasswordChange rotates the credential. The session stays valid after
// a successful change.
func (h *ProfileHandler) SubmitPasswordChange(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login/")
		return
	}

	var form forms.PasswordChangeForm
	if err := c.ShouldBind(&form); err != nil {
		h.rerenderPassword(c, forms.Errors{"form": "Invalid form submission."})
		return
	}

	if errs := form.Validate(); len(errs) > 0 {
		h.rerenderPassword(c, errs)
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), account.ID, form.CurrentPassword, form.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrCurrentPasswordInvalid):
			h.rerenderPassword(c, forms.Errors{"current_password": "Current password is incorrect."})
		case errors.Is(err, usecase.ErrSamePassword):
			h.rerenderPassword(c, forms.Errors{"new_password": "New password must be different from the current one."})
		case errors.Is(err, usecase.ErrPasswordPolicyViolation):
			h.rerenderPassword(c, forms.Errors{"new_password": policyMessage(err)})
		default:
			h.logger.Error("password change failed", zap.Error(err))
			h.rerenderPassword(c, forms.Errors{"form": "Something went wrong. Please try again."})
		}
		return
	}

	if err := session.Refresh(c); err != nil {
		h.logger.Warn("failed to refresh session", zap.Error(err))
	}
	if err := session.AddFlash(c, session.FlashSuccess, "Your password has been changed."); err != nil {
		h.logger.Warn("failed to queue flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/profile/")
}

func (h *ProfileHandler) rerenderEdit(c *gin.Context, form forms.EditProfileForm, errs forms.Errors) {
	render(c, http.StatusOK, "edit_profile.tmpl", gin.H{
		"Title":       "Edit profile",
		"Form":        form,
		"FieldErrors": errs,
		"FormError":   errs["form"],
	})
}

func (h *ProfileHandler) rerenderPassword(c *gin.Context, errs forms.Errors) {
	// Password fields are never echoed back.
	render(c, http.StatusOK, "change_password.tmpl", gin.H{
		"Title":       "Change password",
		"FieldErrors": errs,
		"FormError":   errs["form"],
	})
}
