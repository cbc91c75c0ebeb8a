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

// AuthHandler serves login and logout.
type AuthHandler struct {
	auth   *usecase.AuthService
	logger *zap.Logger
}

// NewAuthHandler creates the authentication handler.
func NewAuthHandler(auth *usecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// ShowLogin renders the login form, preserving the ?next= redirect target.
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	render(c, http.StatusOK, "login.tmpl", gin.H{
		"Title":       "Sign in",
		"Form":        forms.LoginForm{},
		"FieldErrors": forms.Errors{},
		"Next":        safeNext(c.Query("next")),
	})
}

// SubmitLogin verifies credentials and binds the session on success. The
// response never distinguishes an unknown username from a wrong password.
func (h *AuthHandler) SubmitLogin(c *gin.Context) {
	// The target may arrive as a hidden form field or on the query string.
	next := safeNext(c.PostForm("next"))
	if next == "" {
		next = safeNext(c.Query("next"))
	}

	var form forms.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.rerenderLogin(c, form, forms.Errors{}, "Invalid form submission.", next)
		return
	}

	form.Normalize()
	if errs := form.Validate(); len(errs) > 0 {
		h.rerenderLogin(c, form, errs, "", next)
		return
	}

	account, err := h.auth.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			if err := session.AddFlash(c, session.FlashError, "Invalid username or password."); err != nil {
				h.logger.Warn("failed to queue flash", zap.Error(err))
			}
			h.rerenderLogin(c, form, forms.Errors{}, "", next)
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		h.rerenderLogin(c, form, forms.Errors{}, "Something went wrong. Please try again.", next)
		return
	}

	if err := session.SignIn(c, account.ID); err != nil {
		h.logger.Error("failed to establish session", zap.Error(err))
		h.rerenderLogin(c, form, forms.Errors{}, "Something went wrong. Please try again.", next)
		return
	}

	if err := session.AddFlash(c, session.FlashSuccess, "Welcome back, "+account.FullName()+"."); err != nil {
		h.logger.Warn("failed to queue flash", zap.Error(err))
	}

	target := "/profile/"
	if next != "" {
		target = next
	}
	c.Redirect(http.StatusFound, target)
}

// Logout drops the session and returns to the landing page.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := session.SignOut(c); err != nil {
		h.logger.Warn("failed to clear session", zap.Error(err))
	}
	if err := session.AddFlash(c, session.FlashInfo, "You have signed out."); err != nil {
		h.logger.Warn("failed to queue flash", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) rerenderLogin(c *gin.Context, form forms.LoginForm, errs forms.Errors, formError, next string) {
	form.Password = ""
	render(c, http.StatusOK, "login.tmpl", gin.H{
		"Title":       "Sign in",
		"Form":        form,
		"FieldErrors": errs,
		"FormError":   formError,
		"Next":        next,
	})
}

func safeNext(next string) string {
	if middleware.SafeNextPath(next) {
		return next
	}
	return ""
}
