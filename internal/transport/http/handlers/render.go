package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/arklim/account-portal/internal/infra/security"
	"github.com/arklim/account-portal/internal/transport/http/middleware"
	"github.com/arklim/account-portal/internal/transport/http/session"
	"github.com/arklim/account-portal/internal/usecase"
)

// render wraps c.HTML, merging one-shot flash messages and the signed-in
// account into every template's data.
func render(c *gin.Context, status int, template string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	if flashes, err := session.PopFlashes(c); err == nil && len(flashes) > 0 {
		data["Flashes"] = flashes
	}

	if account, ok := middleware.AccountFromContext(c); ok {
		data["CurrentAccount"] = account
	}

	c.HTML(status, template, data)
}

// policyMessage extracts the human-readable rule message from a password
// policy violation.
func policyMessage(err error) string {
	var rule *security.PasswordValidationError
	if errors.As(err, &rule) {
		return rule.Message
	}
	if errors.Is(err, usecase.ErrPasswordPolicyViolation) {
		return "Password does not meet the policy requirements."
	}
	return "Invalid password."
}
